package vk

import "encoding/json"

// PagedResponse is the common shape of VK collection responses
type PagedResponse struct {
	Count  int               `json:"count"`
	Items  []json.RawMessage `json:"items"`
	Groups []RawGroup        `json:"groups,omitempty"`
}

// RawPeer identifies a conversation endpoint
type RawPeer struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// RawChatSettings carries chat metadata for multi-user conversations
type RawChatSettings struct {
	Title string `json:"title"`
}

// RawConversation is a single conversation descriptor
type RawConversation struct {
	Peer         RawPeer          `json:"peer"`
	ChatSettings *RawChatSettings `json:"chat_settings,omitempty"`
}

// RawConversationItem wraps a conversation in the messages.getConversations response
type RawConversationItem struct {
	Conversation RawConversation `json:"conversation"`
}

// RawMessage is a single message as returned by messages.getHistory
type RawMessage struct {
	ID           int64           `json:"id"`
	FromID       int64           `json:"from_id"`
	Date         int64           `json:"date"`
	Text         string          `json:"text"`
	Attachments  []RawAttachment `json:"attachments,omitempty"`
	FwdMessages  []RawMessage    `json:"fwd_messages,omitempty"`
	ReplyMessage *RawMessage     `json:"reply_message,omitempty"`
	Action       json.RawMessage `json:"action,omitempty"`
}

// RawPost is a single wall post as returned by wall.get
type RawPost struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	FromID      int64           `json:"from_id"`
	Date        int64           `json:"date"`
	Text        string          `json:"text"`
	PostType    string          `json:"post_type"`
	Attachments []RawAttachment `json:"attachments,omitempty"`
	CopyHistory []RawPost       `json:"copy_history,omitempty"`
	IsPinned    int             `json:"is_pinned,omitempty"`
	MarkedAsAds int             `json:"marked_as_ads,omitempty"`
	Views       *CountField     `json:"views,omitempty"`
	Reposts     *CountField     `json:"reposts,omitempty"`
	Likes       *CountField     `json:"likes,omitempty"`
	Comments    *CountField     `json:"comments,omitempty"`
}

// RawComment is a single comment as returned by wall.getComments
type RawComment struct {
	ID             int64           `json:"id"`
	FromID         int64           `json:"from_id"`
	Date           int64           `json:"date"`
	Text           string          `json:"text"`
	Attachments    []RawAttachment `json:"attachments,omitempty"`
	ReplyToUser    int64           `json:"reply_to_user,omitempty"`
	ReplyToComment int64           `json:"reply_to_comment,omitempty"`
}

// CountField is the generic {count: n} wrapper VK uses for stats
type CountField struct {
	Count int `json:"count"`
}

// RawGroup is a community as returned by groups.getById
type RawGroup struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ScreenName   string `json:"screen_name"`
	Description  string `json:"description"`
	MembersCount int    `json:"members_count"`
	Activity     string `json:"activity"`
	Type         string `json:"type"`
}

// RawUser is a user profile as returned by users.get
type RawUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LikesList is the response shape of likes.getList
type LikesList struct {
	Count int `json:"count"`
	Items []struct {
		ID int64 `json:"id"`
	} `json:"items"`
}

// RawPhotoSize is one size variant of a photo
type RawPhotoSize struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// RawPhoto is a photo attachment payload
type RawPhoto struct {
	Sizes  []RawPhotoSize `json:"sizes"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
}

// RawVideo is a video attachment payload
type RawVideo struct {
	ID       int64  `json:"id"`
	OwnerID  int64  `json:"owner_id"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	Player   string `json:"player"`
}

// RawDoc is a document attachment payload
type RawDoc struct {
	Title string `json:"title"`
	Size  int64  `json:"size"`
	URL   string `json:"url"`
}

// RawAudio is an audio attachment payload
type RawAudio struct {
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
}

// RawSticker is a sticker attachment payload
type RawSticker struct {
	Images []RawPhotoSize `json:"images"`
}

// RawLink is an external link attachment payload
type RawLink struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// RawWallRef is a wall post attachment payload
type RawWallRef struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Text    string `json:"text"`
}

// RawAttachment is a discriminated attachment union. The full original
// payload is retained so normalization stays lossless.
type RawAttachment struct {
	Type    string      `json:"type"`
	Photo   *RawPhoto   `json:"photo,omitempty"`
	Video   *RawVideo   `json:"video,omitempty"`
	Doc     *RawDoc     `json:"doc,omitempty"`
	Audio   *RawAudio   `json:"audio,omitempty"`
	Sticker *RawSticker `json:"sticker,omitempty"`
	Link    *RawLink    `json:"link,omitempty"`
	Wall    *RawWallRef `json:"wall,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON captures the original payload alongside the typed fields
func (a *RawAttachment) UnmarshalJSON(data []byte) error {
	type plain RawAttachment
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = RawAttachment(p)
	a.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Raw returns the original attachment payload as received from the API
func (a *RawAttachment) Raw() json.RawMessage {
	return a.raw
}
