// Package archiver orchestrates the two export phases: private dialogs
// and community wall posts.
package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vkdump/internal/dumper"
	"vkdump/pkg/config"
	"vkdump/pkg/errors"
	"vkdump/pkg/export"
	"vkdump/pkg/imagecache"
	"vkdump/pkg/logger"
	"vkdump/pkg/normalize"
	"vkdump/pkg/ratelimit"
	"vkdump/pkg/vk"
)

// historyPageSize is the messages.getHistory per-call maximum
const historyPageSize = 200

// wallPageSize is the wall.get per-call maximum
const wallPageSize = 100

// commentsPageSize is the wall.getComments per-call maximum
const commentsPageSize = 100

// likesRequestCount is how many liker IDs a single likes.getList call asks for
const likesRequestCount = 1000

// Archiver coordinates discovery, fetching, normalization and persistence
type Archiver struct {
	config     *config.Config
	client     vk.Caller
	paginator  *vk.Paginator
	normalizer *normalize.Normalizer
	logger     logger.Logger

	dialogPersister *export.Persister
}

// Summary reports what a run accomplished
type Summary struct {
	DialogsTotal   int
	DialogsDumped  int
	DialogsFailed  int
	PostsDumped    int
	DialogsPhaseOK bool
	PostsPhaseOK   bool
}

// OK reports whether every requested phase succeeded
func (s *Summary) OK() bool {
	return s.DialogsPhaseOK && s.PostsPhaseOK
}

// New creates an archiver from validated configuration
func New(cfg *config.Config, log logger.Logger) *Archiver {
	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.RequestsPerMinute, time.Minute)

	client := vk.NewClient(cfg.VK.Token, cfg.VK.APIVersion, log,
		vk.WithHTTPClient(&http.Client{Timeout: cfg.VK.Timeout}),
		vk.WithRateLimiter(limiter),
		vk.WithMaxRetries(cfg.RateLimit.MaxRetries),
		vk.WithRetryDelay(cfg.RateLimit.RetryDelay),
	)

	return &Archiver{
		config:     cfg,
		client:     client,
		paginator:  vk.NewPaginator(client, log),
		normalizer: normalize.NewNormalizer(log),
		logger:     log,
	}
}

// NewWithClient creates an archiver over a preconfigured API caller,
// mainly for tests
func NewWithClient(cfg *config.Config, client vk.Caller, log logger.Logger) *Archiver {
	return &Archiver{
		config:     cfg,
		client:     client,
		paginator:  vk.NewPaginator(client, log),
		normalizer: normalize.NewNormalizer(log),
		logger:     log,
	}
}

// Run executes every phase the configuration requests. The returned
// summary reports per-phase outcomes; the error is the first phase
// level failure encountered.
func (a *Archiver) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		DialogsPhaseOK: true,
		PostsPhaseOK:   true,
	}
	var firstErr error

	if a.config.ShouldDumpDialogs() {
		if err := a.DumpDialogs(ctx, summary); err != nil {
			summary.DialogsPhaseOK = false
			firstErr = err
			a.logger.WithError(err).Error("Dialogs phase failed")
		}
	}

	if a.config.ShouldDumpPosts() {
		if err := a.DumpPosts(ctx, summary); err != nil {
			summary.PostsPhaseOK = false
			if firstErr == nil {
				firstErr = err
			}
			a.logger.WithError(err).Error("Posts phase failed")
		}
	}

	return summary, firstErr
}

// DumpDialogs discovers conversations and archives each one through the
// worker pool. Individual dialog failures are recorded and skipped; only
// discovery failures abort the phase.
func (a *Archiver) DumpDialogs(ctx context.Context, summary *Summary) error {
	persister, err := export.NewPersister(a.config.DialogsPath(), a.logger)
	if err != nil {
		return err
	}
	a.dialogPersister = persister

	jobs, err := a.discoverDialogs(ctx)
	if err != nil {
		return err
	}
	summary.DialogsTotal = len(jobs)

	a.logger.InfoWithFields("Discovered dialogs", map[string]interface{}{
		"count": len(jobs),
	})

	pool := dumper.NewWorkerPool(a.config.Dump.ThreadCount, a, a.logger)
	pool.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range pool.Results() {
			if result.Success {
				summary.DialogsDumped++
			} else {
				summary.DialogsFailed++
			}
		}
	}()

	for _, job := range jobs {
		if err := pool.Submit(job); err != nil {
			a.logger.WithError(err).Warn("Failed to submit dialog job")
		}
	}
	pool.Stop()
	<-done

	a.logger.InfoWithFields("Dialogs phase finished", map[string]interface{}{
		"dumped": summary.DialogsDumped,
		"failed": summary.DialogsFailed,
	})

	return nil
}

// discoverDialogs lists conversations and resolves their display titles
func (a *Archiver) discoverDialogs(ctx context.Context) ([]dumper.DumpJob, error) {
	pageSize := a.config.Dump.MaxDialogs
	if pageSize > historyPageSize {
		pageSize = historyPageSize
	}

	items, err := a.paginator.FetchAll(ctx, "messages.getConversations", pageSize, url.Values{})
	if err != nil {
		return nil, err
	}

	conversations := make([]vk.RawConversationItem, 0, len(items))
	var userIDs, groupIDs []int64
	for _, item := range items {
		var conv vk.RawConversationItem
		if err := json.Unmarshal(item, &conv); err != nil {
			a.logger.WithError(err).Warn("Skipping unparsable conversation")
			continue
		}
		conversations = append(conversations, conv)

		peer := conv.Conversation.Peer
		switch peer.Type {
		case "user":
			userIDs = append(userIDs, peer.ID)
		case "group":
			groupIDs = append(groupIDs, -peer.ID)
		}
	}

	userNames := a.resolveUserNames(ctx, userIDs)
	groupNames := a.resolveGroupNames(ctx, groupIDs)

	jobs := make([]dumper.DumpJob, 0, len(conversations))
	for _, conv := range conversations {
		peer := conv.Conversation.Peer
		title := ""
		switch peer.Type {
		case "user":
			title = userNames[peer.ID]
		case "group":
			title = groupNames[-peer.ID]
		case "chat":
			if conv.Conversation.ChatSettings != nil {
				title = conv.Conversation.ChatSettings.Title
			}
		}
		if title == "" {
			title = fmt.Sprintf("peer_%d", peer.ID)
		}

		jobs = append(jobs, dumper.DumpJob{
			PeerID: peer.ID,
			Title:  title,
			Type:   peer.Type,
		})
	}

	return jobs, nil
}

// resolveUserNames maps user IDs to "First Last" display names.
// Unresolvable users simply stay absent from the map.
func (a *Archiver) resolveUserNames(ctx context.Context, ids []int64) map[int64]string {
	names := make(map[int64]string)
	if len(ids) == 0 {
		return names
	}

	params := url.Values{}
	params.Set("user_ids", joinIDs(ids))

	payload, err := a.client.Call(ctx, "users.get", params)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to resolve user names")
		return names
	}

	var users []vk.RawUser
	if err := json.Unmarshal(payload, &users); err != nil {
		a.logger.WithError(err).Warn("Failed to parse users.get response")
		return names
	}

	for _, user := range users {
		names[user.ID] = strings.TrimSpace(user.FirstName + " " + user.LastName)
	}
	return names
}

// resolveGroupNames maps positive group IDs to community names
func (a *Archiver) resolveGroupNames(ctx context.Context, ids []int64) map[int64]string {
	names := make(map[int64]string)
	if len(ids) == 0 {
		return names
	}

	params := url.Values{}
	params.Set("group_ids", joinIDs(ids))

	payload, err := a.client.Call(ctx, "groups.getById", params)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to resolve group names")
		return names
	}

	var groups []vk.RawGroup
	if err := json.Unmarshal(payload, &groups); err != nil {
		a.logger.WithError(err).Warn("Failed to parse groups.getById response")
		return names
	}

	for _, group := range groups {
		names[group.ID] = group.Name
	}
	return names
}

// DumpDialog archives one conversation. It satisfies dumper.DialogDumper
// so the worker pool can fan dialogs out across threads.
func (a *Archiver) DumpDialog(ctx context.Context, job dumper.DumpJob) (int, []string, error) {
	params := url.Values{}
	params.Set("peer_id", strconv.FormatInt(job.PeerID, 10))

	items, err := a.paginator.FetchAll(ctx, "messages.getHistory", historyPageSize, params)
	if err != nil {
		return 0, nil, err
	}

	// Messages are persisted exactly as the pages arrived; the API's
	// native ordering is part of the archive contract.
	messages := make([]normalize.Message, 0, len(items))
	for _, item := range items {
		var raw vk.RawMessage
		if err := json.Unmarshal(item, &raw); err != nil {
			a.logger.WithError(err).WithField("peer_id", job.PeerID).Warn("Skipping unparsable message")
			continue
		}
		messages = append(messages, a.normalizer.Message(job.PeerID, &raw))
	}

	dialog := &normalize.Dialog{
		Title:    job.Title,
		PeerID:   job.PeerID,
		Type:     job.Type,
		Messages: messages,
	}

	stem := fmt.Sprintf("%s_%d", job.Title, job.PeerID)
	var paths []string

	if a.config.HasFormat(config.FormatJSON) {
		path, err := a.dialogPersister.SaveJSON(stem, dialog)
		if err != nil {
			return len(messages), paths, err
		}
		paths = append(paths, path)
	}

	if a.config.HasFormat(config.FormatHTML) {
		path, err := a.saveDialogHTML(ctx, stem, dialog)
		if err != nil {
			return len(messages), paths, err
		}
		paths = append(paths, path)
	}

	return len(messages), paths, nil
}

// saveDialogHTML renders and writes the HTML page for one dialog
func (a *Archiver) saveDialogHTML(ctx context.Context, stem string, dialog *normalize.Dialog) (string, error) {
	localize, err := a.makeLocalizer(ctx, a.dialogPersister, stem)
	if err != nil {
		return "", err
	}

	renderer, err := export.NewRenderer(localize, a.logger)
	if err != nil {
		return "", err
	}

	page, err := renderer.DialogHTML(dialog)
	if err != nil {
		return "", err
	}

	return a.dialogPersister.SaveHTML(stem, page)
}

// makeLocalizer returns the image localizer for an HTML archive,
// backed by a {stem}_files cache directory when caching is enabled
func (a *Archiver) makeLocalizer(ctx context.Context, persister *export.Persister, stem string) (export.Localizer, error) {
	if !a.config.Media.CacheImages {
		return export.IdentityLocalizer, nil
	}

	cache, err := imagecache.New(persister.MediaDir(stem), a.logger,
		imagecache.WithTimeout(a.config.Media.FetchTimeout))
	if err != nil {
		return nil, err
	}

	return func(url string) string {
		return cache.Fetch(ctx, url)
	}, nil
}

// DumpPosts archives a community wall: posts, their comments and like
// summaries. Comment and like failures degrade to empty data; only post
// fetching itself aborts the phase.
func (a *Archiver) DumpPosts(ctx context.Context, summary *Summary) error {
	persister, err := export.NewPersister(a.config.PostsPath(), a.logger)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("extended", "1")

	communityID := strings.TrimSpace(a.config.Dump.CommunityID)
	if isNumericID(communityID) {
		id, _ := strconv.ParseInt(strings.TrimPrefix(communityID, "-"), 10, 64)
		params.Set("owner_id", strconv.FormatInt(-id, 10))
	} else {
		params.Set("domain", communityID)
	}

	result, err := a.paginator.FetchBounded(ctx, "wall.get", wallPageSize, a.config.Dump.PostsCount, params)
	if err != nil {
		return err
	}

	community := a.fetchCommunity(ctx, result.OwnerID, communityID)

	posts := make([]normalize.Post, 0, len(result.Items))
	for _, item := range result.Items {
		var raw vk.RawPost
		if err := json.Unmarshal(item, &raw); err != nil {
			a.logger.WithError(err).Warn("Skipping unparsable post")
			continue
		}

		post := a.normalizer.Post(&raw)

		if a.config.Dump.IncludeComments {
			post.Comments = a.fetchComments(ctx, raw.OwnerID, raw.ID)
		}
		if a.config.Dump.IncludeLikes {
			post.Likes = a.fetchLikes(ctx, raw.OwnerID, raw.ID)
		}

		posts = append(posts, post)
	}

	archive := &normalize.PostsArchive{
		Type:       normalize.ArchiveTypePosts,
		ExportDate: normalize.FormatDate(time.Now().Unix()),
		Community:  community,
		PostsCount: len(posts),
		Posts:      posts,
	}

	stem := "posts_" + communityID
	if community != nil && community.ScreenName != "" {
		stem = "posts_" + community.ScreenName
	}

	if a.config.HasFormat(config.FormatJSON) {
		if _, err := persister.SaveJSON(stem, archive); err != nil {
			return err
		}
	}

	if a.config.HasFormat(config.FormatHTML) {
		localize, err := a.makeLocalizer(ctx, persister, stem)
		if err != nil {
			return err
		}
		renderer, err := export.NewRenderer(localize, a.logger)
		if err != nil {
			return err
		}
		page, err := renderer.PostsHTML(archive)
		if err != nil {
			return err
		}
		if _, err := persister.SaveHTML(stem, page); err != nil {
			return err
		}
	}

	summary.PostsDumped = len(posts)

	a.logger.InfoWithFields("Posts phase finished", map[string]interface{}{
		"posts": len(posts),
	})

	return nil
}

// fetchCommunity loads the community profile, degrading to nil when the
// profile cannot be fetched
func (a *Archiver) fetchCommunity(ctx context.Context, ownerID int64, communityID string) *normalize.Community {
	params := url.Values{}
	params.Set("fields", "description,members_count,activity,screen_name")

	switch {
	case ownerID < 0:
		params.Set("group_ids", strconv.FormatInt(-ownerID, 10))
	case isNumericID(communityID):
		params.Set("group_ids", strings.TrimPrefix(communityID, "-"))
	default:
		params.Set("group_ids", communityID)
	}

	payload, err := a.client.Call(ctx, "groups.getById", params)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to fetch community profile")
		return nil
	}

	var groups []vk.RawGroup
	if err := json.Unmarshal(payload, &groups); err != nil || len(groups) == 0 {
		a.logger.Warn("Community profile response was empty")
		return nil
	}

	community := a.normalizer.Community(&groups[0])
	return &community
}

// fetchComments loads all comments of a post in chronological order,
// degrading to an empty list on failure
func (a *Archiver) fetchComments(ctx context.Context, ownerID, postID int64) []normalize.Comment {
	params := url.Values{}
	params.Set("owner_id", strconv.FormatInt(ownerID, 10))
	params.Set("post_id", strconv.FormatInt(postID, 10))
	params.Set("sort", "asc")

	items, err := a.paginator.FetchAll(ctx, "wall.getComments", commentsPageSize, params)
	if err != nil {
		a.logger.WithError(err).WithField("post_id", postID).Warn("Failed to fetch comments")
		return nil
	}

	comments := make([]normalize.Comment, 0, len(items))
	for _, item := range items {
		var raw vk.RawComment
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}
		comments = append(comments, a.normalizer.Comment(ownerID, postID, &raw))
	}
	return comments
}

// fetchLikes loads the like summary of a post, degrading to nil on failure
func (a *Archiver) fetchLikes(ctx context.Context, ownerID, postID int64) *normalize.LikeSummary {
	params := url.Values{}
	params.Set("type", "post")
	params.Set("owner_id", strconv.FormatInt(ownerID, 10))
	params.Set("item_id", strconv.FormatInt(postID, 10))
	params.Set("count", strconv.Itoa(likesRequestCount))

	payload, err := a.client.Call(ctx, "likes.getList", params)
	if err != nil {
		a.logger.WithError(err).WithField("post_id", postID).Warn("Failed to fetch likes")
		return nil
	}

	var likes vk.LikesList
	if err := json.Unmarshal(payload, &likes); err != nil {
		a.logger.WithError(err).WithField("post_id", postID).Warn("Failed to parse likes response")
		return nil
	}

	summary := &normalize.LikeSummary{Count: likes.Count}
	for _, item := range likes.Items {
		summary.UserIDs = append(summary.UserIDs, item.ID)
	}
	return summary
}

// Probe verifies that the configured token is usable
func (a *Archiver) Probe(ctx context.Context) error {
	client, ok := a.client.(*vk.Client)
	if !ok {
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: "probe requires a real API client",
		}
	}
	_, err := client.Probe(ctx)
	return err
}

// isNumericID reports whether id is a (possibly negative) number
func isNumericID(id string) bool {
	trimmed := strings.TrimPrefix(id, "-")
	if trimmed == "" {
		return false
	}
	for _, char := range trimmed {
		if char < '0' || char > '9' {
			return false
		}
	}
	return true
}

// joinIDs renders IDs as the comma separated list VK batch methods expect
func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
