package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"

	"fsconnector/internal/urlx"
)

// HistoryCollection is the collection holding history documents.
var HistoryCollection = "history"

// History document field names.
const (
	FieldFinalURL    = "final_url"
	FieldDealroomID  = "dealroom_id"
	FieldLastEdit    = "last_edit"
	FieldRelatedURLs = "current_related_urls"
)

// Reserved dealroom_id values. Anything >= 0 is a real identifier.
const (
	DealroomIDNotEntity int64 = -1 // not a known business entity (default on create)
	DealroomIDDeleted   int64 = -2 // marked deleted
)

var errRemote = errors.New("connector: remote operation failed")

// historyStore abstracts the remote calls of the upsert so the
// matching logic is testable without a live client. The firestore
// implementation routes everything through the retry façade.
type historyStore interface {
	byFinalURL(ctx context.Context, finalURL string) ([]*firestore.DocumentRef, error)
	byDealroomID(ctx context.Context, id int64) ([]*firestore.DocumentRef, error)
	create(ctx context.Context, data map[string]interface{}) error
	update(ctx context.Context, ref *firestore.DocumentRef, data map[string]interface{}) error
}

type fsHistoryStore struct {
	client     *firestore.Client
	collection string
}

func (s fsHistoryStore) col() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

func (s fsHistoryStore) byFinalURL(ctx context.Context, finalURL string) ([]*firestore.DocumentRef, error) {
	return s.query(ctx, FieldFinalURL, finalURL)
}

func (s fsHistoryStore) byDealroomID(ctx context.Context, id int64) ([]*firestore.DocumentRef, error) {
	return s.query(ctx, FieldDealroomID, id)
}

func (s fsHistoryStore) query(ctx context.Context, field string, value interface{}) ([]*firestore.DocumentRef, error) {
	docs, st := Stream(ctx, s.col().Where(field, "==", value))
	if !st.OK() {
		return nil, fmt.Errorf("%w: query %s", errRemote, field)
	}
	refs := make([]*firestore.DocumentRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, d.Ref)
	}
	return refs, nil
}

func (s fsHistoryStore) create(ctx context.Context, data map[string]interface{}) error {
	if st := Set(ctx, s.col().NewDoc(), data); !st.OK() {
		return fmt.Errorf("%w: create", errRemote)
	}
	return nil
}

func (s fsHistoryStore) update(ctx context.Context, ref *firestore.DocumentRef, data map[string]interface{}) error {
	if st := Set(ctx, ref, data); !st.OK() {
		return fmt.Errorf("%w: update", errRemote)
	}
	return nil
}

// GetHistoryDocRefs returns the history documents matching the given
// final_url and/or dealroom_id, deduplicated. finalURL may be empty;
// dealroomID < 0 skips the id lookup.
func GetHistoryDocRefs(ctx context.Context, client *firestore.Client, finalURL string, dealroomID int64) ([]*firestore.DocumentRef, Status) {
	store := fsHistoryStore{client: client, collection: HistoryCollection}

	normalized := ""
	if strings.TrimSpace(finalURL) != "" {
		u, err := urlx.Normalize(finalURL)
		if err != nil {
			logger.Error("invalid final_url", zap.String(FieldFinalURL, finalURL), zap.Error(err))
			return nil, StatusError
		}
		normalized = u
	}

	refs, err := findHistoryRefs(ctx, store, normalized, dealroomID)
	if err != nil {
		return nil, StatusError
	}
	return refs, StatusSuccess
}

// SetHistoryDocRefs upserts a history document.
//
// The payload must carry a final_url key; an empty value is allowed
// only together with a real (>= 0) dealroom_id. Exactly one existing
// match by url or id is updated in place; no match creates a new
// document with dealroom_id defaulted to -1; two or more matches are
// rejected without writing.
func SetHistoryDocRefs(ctx context.Context, client *firestore.Client, payload map[string]interface{}) Status {
	store := fsHistoryStore{client: client, collection: HistoryCollection}
	return setHistoryDoc(ctx, store, payload)
}

func setHistoryDoc(ctx context.Context, store historyStore, payload map[string]interface{}) Status {
	if payload == nil {
		logger.Error("history payload is nil")
		return StatusError
	}

	rawURL, hasURL := payload[FieldFinalURL]
	if !hasURL {
		logger.Error("history payload is missing final_url")
		return StatusError
	}
	urlStr, ok := rawURL.(string)
	if !ok {
		logger.Error("history payload final_url is not a string")
		return StatusError
	}

	dealroomID := DealroomIDNotEntity
	rawID, hasID := payload[FieldDealroomID]
	if hasID {
		id, err := parseDealroomID(rawID)
		if err != nil {
			logger.Error("history payload has malformed dealroom_id", zap.Any(FieldDealroomID, rawID), zap.Error(err))
			return StatusError
		}
		dealroomID = id
	}

	finalURL := ""
	if strings.TrimSpace(urlStr) != "" {
		u, err := urlx.Normalize(urlStr)
		if err != nil {
			logger.Error("history payload has malformed final_url", zap.String(FieldFinalURL, urlStr), zap.Error(err))
			return StatusError
		}
		finalURL = u
	} else if !hasID || dealroomID < 0 {
		logger.Error("history payload has empty final_url and no real dealroom_id")
		return StatusError
	}

	data := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		data[k] = v
	}
	data[FieldFinalURL] = finalURL
	if hasID {
		data[FieldDealroomID] = dealroomID
	}
	if rawRelated, present := payload[FieldRelatedURLs]; present {
		related, err := normalizeRelatedURLs(rawRelated)
		if err != nil {
			logger.Error("history payload has malformed current_related_urls", zap.Error(err))
			return StatusError
		}
		data[FieldRelatedURLs] = related
	}
	data[FieldLastEdit] = firestore.ServerTimestamp

	lookupID := int64(-1)
	if hasID && dealroomID >= 0 {
		lookupID = dealroomID
	}
	refs, err := findHistoryRefs(ctx, store, finalURL, lookupID)
	if err != nil {
		return StatusError
	}

	switch len(refs) {
	case 0:
		if !hasID {
			data[FieldDealroomID] = DealroomIDNotEntity
		}
		if err := store.create(ctx, data); err != nil {
			return StatusError
		}
		logger.Info("created history document",
			zap.String(FieldFinalURL, finalURL),
			zap.Int64(FieldDealroomID, data[FieldDealroomID].(int64)),
		)
		return StatusSuccess
	case 1:
		if err := store.update(ctx, refs[0], data); err != nil {
			return StatusError
		}
		logger.Info("updated history document",
			zap.String("ref", refs[0].Path),
			zap.String(FieldFinalURL, finalURL),
		)
		return StatusSuccess
	default:
		logger.Error("multiple history documents match; refusing to write",
			zap.String(FieldFinalURL, finalURL),
			zap.Int64(FieldDealroomID, dealroomID),
			zap.Int("matches", len(refs)),
		)
		return StatusError
	}
}

// findHistoryRefs unions the matches by dealroom_id (when >= 0) and by
// final_url (when non-empty), deduplicated by document path.
func findHistoryRefs(ctx context.Context, store historyStore, finalURL string, dealroomID int64) ([]*firestore.DocumentRef, error) {
	var refs []*firestore.DocumentRef
	seen := make(map[string]bool)

	add := func(found []*firestore.DocumentRef) {
		for _, r := range found {
			if r == nil || seen[r.Path] {
				continue
			}
			seen[r.Path] = true
			refs = append(refs, r)
		}
	}

	if dealroomID >= 0 {
		found, err := store.byDealroomID(ctx, dealroomID)
		if err != nil {
			return nil, err
		}
		add(found)
	}
	if finalURL != "" {
		found, err := store.byFinalURL(ctx, finalURL)
		if err != nil {
			return nil, err
		}
		add(found)
	}
	return refs, nil
}

// parseDealroomID accepts the numeric shapes a payload may carry
// (int, float, numeric string, json.Number). Valid values are -2
// (deleted), -1 (not a business entity) and anything >= 0.
func parseDealroomID(v interface{}) (int64, error) {
	var (
		id  int64
		err error
	)

	switch n := v.(type) {
	case int:
		id = int64(n)
	case int32:
		id = int64(n)
	case int64:
		id = n
	case float64:
		id = int64(n)
		if float64(id) != n {
			return 0, fmt.Errorf("dealroom_id %v is not an integer", n)
		}
	case json.Number:
		id, err = n.Int64()
		if err != nil {
			return 0, fmt.Errorf("dealroom_id %q is not an integer", n.String())
		}
	case string:
		id, err = strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("dealroom_id %q is not numeric", n)
		}
	default:
		return 0, fmt.Errorf("dealroom_id has unsupported type %T", v)
	}

	if id < DealroomIDDeleted {
		return 0, fmt.Errorf("dealroom_id %d is out of range", id)
	}
	return id, nil
}

func normalizeRelatedURLs(v interface{}) ([]string, error) {
	var raw []string
	switch list := v.(type) {
	case []string:
		raw = list
	case []interface{}:
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("current_related_urls entry has type %T", item)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("current_related_urls has unsupported type %T", v)
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		u, err := urlx.Normalize(s)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
