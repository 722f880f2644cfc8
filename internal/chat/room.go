package chat

// Room keys identify one conversation. Group rooms use the vision board id
// directly. Direct rooms use the sorted pair of participant ids so that both
// sides compute the same key no matter who connects first.

// DirectRoomKey canonicalizes the unordered pair (a, b).
func DirectRoomKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}

// GroupTopic derives the broker channel for a group room.
func GroupTopic(room string) string { return "group:" + room }

// DirectTopic derives the broker channel for a direct room.
func DirectTopic(room string) string { return "direct:" + room }
