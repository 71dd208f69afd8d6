package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"vkdump/pkg/errors"
	"vkdump/pkg/logger"
)

// Paginator walks paged VK API collections using offset-based requests
type Paginator struct {
	caller Caller
	logger logger.Logger
}

// NewPaginator creates a paginator over the given API caller
func NewPaginator(caller Caller, log logger.Logger) *Paginator {
	return &Paginator{
		caller: caller,
		logger: log,
	}
}

// page is the decoded shape of one paged response
type page struct {
	Count  int               `json:"count"`
	Items  []json.RawMessage `json:"items"`
	Groups []RawGroup        `json:"groups"`
}

// FetchAll retrieves every item of a paged collection. pageSize is the
// per-call item count, capped by the API's own per-method maximum.
// Fetching stops on an empty or short page.
func (p *Paginator) FetchAll(ctx context.Context, method string, pageSize int, params url.Values) ([]json.RawMessage, error) {
	var items []json.RawMessage
	offset := 0

	for {
		pg, err := p.fetchPage(ctx, method, pageSize, offset, params)
		if err != nil {
			return nil, err
		}

		items = append(items, pg.Items...)
		offset += len(pg.Items)

		if len(pg.Items) == 0 || len(pg.Items) < pageSize {
			break
		}
	}

	p.logger.DebugWithFields("Fetched all pages", map[string]interface{}{
		"method": method,
		"items":  len(items),
	})

	return items, nil
}

// BoundedResult is the outcome of a bounded paged fetch
type BoundedResult struct {
	Items []json.RawMessage
	// OwnerID is the collection owner resolved during fetching. Zero when
	// the owner could not be determined from the request or the response.
	OwnerID int64
	// Total is the server-reported size of the whole collection
	Total int
}

// FetchBounded retrieves up to target items of a paged collection. Each
// request asks for min(pageSize, remaining) items. The collection owner is
// resolved from the request parameters when present, otherwise from the
// first returned item or the groups side list.
func (p *Paginator) FetchBounded(ctx context.Context, method string, pageSize, target int, params url.Values) (*BoundedResult, error) {
	result := &BoundedResult{}
	offset := 0
	resolved := false

	if raw := params.Get("owner_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &errors.Error{
				Type:    errors.ErrorTypeResolution,
				Message: fmt.Sprintf("invalid owner_id parameter %q", raw),
			}
		}
		result.OwnerID = id
		resolved = true
	}

	for len(result.Items) < target {
		count := pageSize
		if remaining := target - len(result.Items); remaining < count {
			count = remaining
		}

		pg, err := p.fetchPage(ctx, method, count, offset, params)
		if err != nil {
			return nil, err
		}

		result.Total = pg.Count

		if !resolved && len(pg.Items) > 0 {
			id, err := p.resolveOwner(pg)
			if err != nil {
				return nil, err
			}
			result.OwnerID = id
			resolved = true
		}

		result.Items = append(result.Items, pg.Items...)
		offset += len(pg.Items)

		if len(pg.Items) == 0 || len(pg.Items) < count {
			break
		}
	}

	p.logger.DebugWithFields("Fetched bounded pages", map[string]interface{}{
		"method": method,
		"items":  len(result.Items),
		"target": target,
	})

	return result, nil
}

// fetchPage retrieves and decodes one page of a collection
func (p *Paginator) fetchPage(ctx context.Context, method string, count, offset int, params url.Values) (*page, error) {
	callParams := url.Values{}
	for key, values := range params {
		for _, value := range values {
			callParams.Add(key, value)
		}
	}
	callParams.Set("count", strconv.Itoa(count))
	callParams.Set("offset", strconv.Itoa(offset))

	payload, err := p.caller.Call(ctx, method, callParams)
	if err != nil {
		return nil, err
	}

	var pg page
	if err := json.Unmarshal(payload, &pg); err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse %s page: %v", method, err),
		}
	}

	return &pg, nil
}

// resolveOwner determines the collection owner from a fetched page.
// Items carry their owner directly; communities addressed by domain only
// appear in the groups side list with a positive ID that must be negated.
func (p *Paginator) resolveOwner(pg *page) (int64, error) {
	if len(pg.Items) > 0 {
		var item struct {
			OwnerID int64 `json:"owner_id"`
		}
		if err := json.Unmarshal(pg.Items[0], &item); err == nil && item.OwnerID != 0 {
			return item.OwnerID, nil
		}
	}

	if len(pg.Groups) > 0 {
		return -pg.Groups[0].ID, nil
	}

	return 0, &errors.Error{
		Type:    errors.ErrorTypeResolution,
		Message: "unable to resolve collection owner from response",
	}
}
