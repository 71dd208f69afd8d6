package normalize

import (
	"strconv"

	"vkdump/pkg/logger"
	"vkdump/pkg/vk"
)

// MaxNestingDepth caps recursion into forwarded messages and repost
// chains. Deeper levels are dropped rather than followed.
const MaxNestingDepth = 50

// Russian display defaults for untitled media, matching what the VK web
// client shows for such attachments
const (
	defaultVideoTitle = "Видео"
	defaultDocTitle   = "Документ"
	defaultAudioTitle = "Аудио"
)

// Normalizer converts raw API objects into the archive data model
type Normalizer struct {
	logger logger.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(log logger.Logger) *Normalizer {
	return &Normalizer{logger: log}
}

// Message normalizes a dialog message, recursing into forwarded and
// reply messages up to the nesting cap. peerID is the dialog the message
// belongs to and determines its permalink.
func (n *Normalizer) Message(peerID int64, raw *vk.RawMessage) Message {
	return n.message(peerID, raw, 0)
}

func (n *Normalizer) message(peerID int64, raw *vk.RawMessage, depth int) Message {
	msg := Message{
		ID:            raw.ID,
		DialogID:      peerID,
		FromID:        raw.FromID,
		Date:          raw.Date,
		DateFormatted: FormatDate(raw.Date),
		Text:          raw.Text,
	}

	if raw.ID != 0 {
		msg.Link = vk.MessageLink(peerID, raw.ID)
	}

	for i := range raw.Attachments {
		msg.Attachments = append(msg.Attachments, n.Attachment(&raw.Attachments[i]))
	}

	if depth >= MaxNestingDepth {
		if len(raw.FwdMessages) > 0 || raw.ReplyMessage != nil {
			n.logger.WarnWithFields("Dropping nested messages beyond depth cap", map[string]interface{}{
				"message_id": raw.ID,
				"depth":      depth,
			})
		}
		return msg
	}

	for i := range raw.FwdMessages {
		msg.ForwardedMessages = append(msg.ForwardedMessages, n.message(peerID, &raw.FwdMessages[i], depth+1))
	}
	if raw.ReplyMessage != nil {
		reply := n.message(peerID, raw.ReplyMessage, depth+1)
		msg.ReplyMessage = &reply
	}

	return msg
}

// Post normalizes a wall post, recursing into its repost chain up to the
// nesting cap. Comments and likes are attached separately by the caller.
func (n *Normalizer) Post(raw *vk.RawPost) Post {
	return n.post(raw, 0)
}

func (n *Normalizer) post(raw *vk.RawPost, depth int) Post {
	post := Post{
		ID:            raw.ID,
		OwnerID:       raw.OwnerID,
		FromID:        raw.FromID,
		Date:          raw.Date,
		DateFormatted: FormatDate(raw.Date),
		Text:          raw.Text,
		PostType:      raw.PostType,
		Link:          vk.PostLink(raw.OwnerID, raw.ID),
		IsPinned:      raw.IsPinned != 0,
		MarkedAsAds:   raw.MarkedAsAds != 0,
	}

	if raw.Views != nil {
		post.Views = raw.Views.Count
	}
	if raw.Reposts != nil {
		post.RepostsCount = raw.Reposts.Count
	}
	if raw.Comments != nil {
		post.CommentsCount = raw.Comments.Count
	}

	for i := range raw.Attachments {
		post.Attachments = append(post.Attachments, n.Attachment(&raw.Attachments[i]))
	}

	if depth >= MaxNestingDepth {
		if len(raw.CopyHistory) > 0 {
			n.logger.WarnWithFields("Dropping repost chain beyond depth cap", map[string]interface{}{
				"post_id": raw.ID,
				"depth":   depth,
			})
		}
		return post
	}

	for i := range raw.CopyHistory {
		post.CopyHistory = append(post.CopyHistory, n.post(&raw.CopyHistory[i], depth+1))
	}

	return post
}

// Comment normalizes a comment on the given post
func (n *Normalizer) Comment(ownerID, postID int64, raw *vk.RawComment) Comment {
	comment := Comment{
		ID:             raw.ID,
		FromID:         raw.FromID,
		Date:           raw.Date,
		DateFormatted:  FormatDate(raw.Date),
		Text:           raw.Text,
		Link:           vk.CommentLink(ownerID, postID, raw.ID),
		ReplyToUser:    raw.ReplyToUser,
		ReplyToComment: raw.ReplyToComment,
	}

	for i := range raw.Attachments {
		comment.Attachments = append(comment.Attachments, n.Attachment(&raw.Attachments[i]))
	}

	return comment
}

// Community normalizes a community profile
func (n *Normalizer) Community(raw *vk.RawGroup) Community {
	link := vk.BaseURL + "/club" + strconv.FormatInt(raw.ID, 10)
	if raw.ScreenName != "" {
		link = vk.BaseURL + "/" + raw.ScreenName
	}

	return Community{
		ID:           raw.ID,
		Name:         raw.Name,
		ScreenName:   raw.ScreenName,
		Description:  raw.Description,
		MembersCount: raw.MembersCount,
		Activity:     raw.Activity,
		Type:         raw.Type,
		Link:         link,
	}
}

// Attachment normalizes a single attachment. Unrecognized types keep only
// the type tag and the original payload.
func (n *Normalizer) Attachment(raw *vk.RawAttachment) Attachment {
	att := Attachment{
		Type:         raw.Type,
		OriginalData: raw.Raw(),
	}

	switch raw.Type {
	case "photo":
		if raw.Photo != nil {
			if size := largestPhotoSize(raw.Photo.Sizes); size != nil {
				att.URL = size.URL
				att.Width = size.Width
				att.Height = size.Height
			}
		}
	case "video":
		if raw.Video != nil {
			att.Title = raw.Video.Title
			if att.Title == "" {
				att.Title = defaultVideoTitle
			}
			att.Duration = raw.Video.Duration
			att.Link = vk.VideoLink(raw.Video.OwnerID, raw.Video.ID)
		}
	case "doc":
		if raw.Doc != nil {
			att.Title = raw.Doc.Title
			if att.Title == "" {
				att.Title = defaultDocTitle
			}
			att.Size = raw.Doc.Size
			att.URL = raw.Doc.URL
		}
	case "audio":
		if raw.Audio != nil {
			att.Artist = raw.Audio.Artist
			att.Title = raw.Audio.Title
			if att.Title == "" {
				att.Title = defaultAudioTitle
			}
			att.Duration = raw.Audio.Duration
		}
	case "sticker":
		if raw.Sticker != nil && len(raw.Sticker.Images) > 0 {
			att.URL = raw.Sticker.Images[len(raw.Sticker.Images)-1].URL
		}
	case "link":
		if raw.Link != nil {
			att.URL = raw.Link.URL
			att.Title = raw.Link.Title
			att.Description = raw.Link.Description
		}
	case "wall":
		if raw.Wall != nil {
			att.Text = raw.Wall.Text
			att.Link = vk.PostLink(raw.Wall.OwnerID, raw.Wall.ID)
		}
	}

	return att
}

// largestPhotoSize picks the size variant with the biggest pixel area
func largestPhotoSize(sizes []vk.RawPhotoSize) *vk.RawPhotoSize {
	var best *vk.RawPhotoSize
	bestArea := -1
	for i := range sizes {
		area := sizes[i].Width * sizes[i].Height
		if area > bestArea {
			best = &sizes[i]
			bestArea = area
		}
	}
	return best
}
