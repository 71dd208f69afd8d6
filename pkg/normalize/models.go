package normalize

import "encoding/json"

// Message is a normalized dialog message ready for archiving. Date is
// the raw unix timestamp for machine consumers; DateFormatted is the
// human-readable rendering used by the HTML pages.
type Message struct {
	ID                int64        `json:"id"`
	DialogID          int64        `json:"dialog_id"`
	FromID            int64        `json:"from_id"`
	Date              int64        `json:"date"`
	DateFormatted     string       `json:"date_formatted"`
	Text              string       `json:"text"`
	Link              string       `json:"link,omitempty"`
	Attachments       []Attachment `json:"attachments,omitempty"`
	ForwardedMessages []Message    `json:"forwarded_messages,omitempty"`
	ReplyMessage      *Message     `json:"reply_message,omitempty"`
}

// Dialog is a complete normalized conversation archive
type Dialog struct {
	Title    string    `json:"title"`
	PeerID   int64     `json:"peer_id"`
	Type     string    `json:"type"`
	Messages []Message `json:"messages"`
}

// Attachment is a normalized attachment. Only the fields relevant to the
// attachment type are set; OriginalData always carries the untouched API
// payload so nothing is lost in normalization.
type Attachment struct {
	Type         string          `json:"type"`
	URL          string          `json:"url,omitempty"`
	Title        string          `json:"title,omitempty"`
	Description  string          `json:"description,omitempty"`
	Artist       string          `json:"artist,omitempty"`
	Duration     int             `json:"duration,omitempty"`
	Size         int64           `json:"size,omitempty"`
	Width        int             `json:"width,omitempty"`
	Height       int             `json:"height,omitempty"`
	Text         string          `json:"text,omitempty"`
	Link         string          `json:"link,omitempty"`
	OriginalData json.RawMessage `json:"original_data"`
}

// Community is a normalized community profile
type Community struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ScreenName   string `json:"screen_name,omitempty"`
	Description  string `json:"description,omitempty"`
	MembersCount int    `json:"members_count,omitempty"`
	Activity     string `json:"activity,omitempty"`
	Type         string `json:"type,omitempty"`
	Link         string `json:"link"`
}

// LikeSummary aggregates likes on a post
type LikeSummary struct {
	Count   int     `json:"count"`
	UserIDs []int64 `json:"user_ids,omitempty"`
}

// Comment is a normalized comment on a wall post
type Comment struct {
	ID             int64        `json:"id"`
	FromID         int64        `json:"from_id"`
	Date           int64        `json:"date"`
	DateFormatted  string       `json:"date_formatted"`
	Text           string       `json:"text"`
	Link           string       `json:"link,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	ReplyToUser    int64        `json:"reply_to_user,omitempty"`
	ReplyToComment int64        `json:"reply_to_comment,omitempty"`
}

// Post is a normalized wall post with its comments and like summary
type Post struct {
	ID            int64        `json:"id"`
	OwnerID       int64        `json:"owner_id"`
	FromID        int64        `json:"from_id"`
	Date          int64        `json:"date"`
	DateFormatted string       `json:"date_formatted"`
	Text          string       `json:"text"`
	PostType      string       `json:"post_type,omitempty"`
	Link          string       `json:"link"`
	IsPinned      bool         `json:"is_pinned,omitempty"`
	MarkedAsAds   bool         `json:"marked_as_ads,omitempty"`
	Views         int          `json:"views,omitempty"`
	RepostsCount  int          `json:"reposts_count,omitempty"`
	CommentsCount int          `json:"comments_count,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty"`
	CopyHistory   []Post       `json:"copy_history,omitempty"`
	Likes         *LikeSummary `json:"likes,omitempty"`
	Comments      []Comment    `json:"comments,omitempty"`
}

// PostsArchive is the top-level envelope of a community posts export.
// Community and Posts are always present in the JSON, even when null or
// empty, so consumers can rely on the envelope shape.
type PostsArchive struct {
	Type       string     `json:"type"`
	ExportDate string     `json:"export_date"`
	Community  *Community `json:"community"`
	PostsCount int        `json:"posts_count"`
	Posts      []Post     `json:"posts"`
}

// ArchiveTypePosts is the Type value of a community posts archive
const ArchiveTypePosts = "community_posts"
