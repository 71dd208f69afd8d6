package vk

import "fmt"

const (
	// BaseURL is the base URL for VK web links
	BaseURL = "https://vk.com"

	// APIBaseURL is the base URL for VK API calls
	APIBaseURL = "https://api.vk.com/method"

	// ChatPeerOffset is the numeric band offset for multi-user chat peers.
	// Peer IDs at or above this value address chats, not users or groups.
	ChatPeerOffset = 2_000_000_000
)

// IsChatPeer reports whether the peer ID falls in the chat numeric band
func IsChatPeer(peerID int64) bool {
	return peerID >= ChatPeerOffset
}

// MessageLink builds the permalink for a message within a dialog.
// User and group peers use the sel={peer} form; chat peers use sel=c{ordinal}
// where the ordinal is the peer ID minus the chat band offset.
func MessageLink(peerID, messageID int64) string {
	if IsChatPeer(peerID) {
		return fmt.Sprintf("%s/im?sel=c%d&msgid=%d", BaseURL, peerID-ChatPeerOffset, messageID)
	}
	return fmt.Sprintf("%s/im?sel=%d&msgid=%d", BaseURL, peerID, messageID)
}

// PostLink builds the permalink for a wall post
func PostLink(ownerID, postID int64) string {
	return fmt.Sprintf("%s/wall%d_%d", BaseURL, ownerID, postID)
}

// CommentLink builds the permalink for a comment on a wall post
func CommentLink(ownerID, postID, commentID int64) string {
	return fmt.Sprintf("%s/wall%d_%d?reply=%d", BaseURL, ownerID, postID, commentID)
}

// VideoLink builds the permalink for a video attachment
func VideoLink(ownerID, videoID int64) string {
	return fmt.Sprintf("%s/video%d_%d", BaseURL, ownerID, videoID)
}
