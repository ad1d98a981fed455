package recordbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const recordAPI = "api/records/v1"

// RecordID identifies a row in a named collection. Identifiers are opaque;
// equality is by string representation.
type RecordID interface {
	String() string
}

// StringID is a textual record identifier.
type StringID string

func (id StringID) String() string { return string(id) }

// IntID is an integer record identifier.
type IntID int64

func (id IntID) String() string { return strconv.FormatInt(int64(id), 10) }

// ListResponse is one page of a record listing.
type ListResponse[T any] struct {
	Cursor     *string `json:"cursor,omitempty"`
	TotalCount *int64  `json:"total_count,omitempty"`
	Records    []T     `json:"records"`
}

// ListArguments narrow and shape a List call. Zero values mean "unset".
type ListArguments struct {
	// Order lists column names, each optionally prefixed with '+' or '-'
	// for ascending/descending.
	Order   []string
	Filters []Filter
	// Expand names relations to inline into the returned records.
	Expand []string
	// Count requests the total matching row count alongside the page.
	Count  bool
	Cursor string
	Limit  uint64
	Offset uint64
}

func (a *ListArguments) params() []QueryParam {
	var params []QueryParam
	if a == nil {
		return params
	}

	if a.Cursor != "" {
		params = append(params, QueryParam{Key: "cursor", Value: a.Cursor})
	}
	if a.Limit > 0 {
		params = append(params, QueryParam{Key: "limit", Value: strconv.FormatUint(a.Limit, 10)})
	}
	if a.Offset > 0 {
		params = append(params, QueryParam{Key: "offset", Value: strconv.FormatUint(a.Offset, 10)})
	}
	if len(a.Order) > 0 {
		params = append(params, QueryParam{Key: "order", Value: strings.Join(a.Order, ",")})
	}
	if len(a.Expand) > 0 {
		params = append(params, QueryParam{Key: "expand", Value: strings.Join(a.Expand, ",")})
	}
	if a.Count {
		params = append(params, QueryParam{Key: "count", Value: "true"})
	}
	for _, filter := range a.Filters {
		params = filter.appendParams("filter", params)
	}
	return params
}

// RecordAPI provides typed CRUD and subscription helpers for one collection.
// All calls route through the owning client's dispatch, inheriting its
// transparent token refresh.
type RecordAPI[T any] struct {
	client *Client
	name   string
}

// Records binds a typed record API to a named collection.
func Records[T any](client *Client, name string) *RecordAPI[T] {
	return &RecordAPI[T]{client: client, name: name}
}

type idsResponse struct {
	Ids []string `json:"ids"`
}

// Create inserts one record and returns its server-assigned identifier.
func (r *RecordAPI[T]) Create(ctx context.Context, record T) (RecordID, error) {
	ids, err := r.create(ctx, record)
	if err != nil {
		return nil, err
	}
	if len(ids) != 1 {
		return nil, fmt.Errorf("create %s: expected one id, got %d", r.name, len(ids))
	}
	return ids[0], nil
}

// CreateBulk inserts records in one request and returns one identifier per
// record, in input order.
func (r *RecordAPI[T]) CreateBulk(ctx context.Context, records []T) ([]RecordID, error) {
	return r.create(ctx, records)
}

func (r *RecordAPI[T]) create(ctx context.Context, body any) ([]RecordID, error) {
	resp, err := r.client.Do(ctx, http.MethodPost, r.path(), body, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("create %s: %w", r.name, err)
	}
	defer resp.Body.Close()

	return decodeRecordIDs(resp.Body)
}

// Read fetches one record, optionally expanding the named relations.
func (r *RecordAPI[T]) Read(ctx context.Context, id RecordID, expand ...string) (*T, error) {
	var params []QueryParam
	if len(expand) > 0 {
		params = append(params, QueryParam{Key: "expand", Value: strings.Join(expand, ",")})
	}

	resp, err := r.client.Do(ctx, http.MethodGet, r.path(id.String()), nil, params)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", r.name, id, err)
	}
	defer resp.Body.Close()

	var record T
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("read %s/%s: decode: %w", r.name, id, err)
	}
	return &record, nil
}

// Update patches one record.
func (r *RecordAPI[T]) Update(ctx context.Context, id RecordID, record T) error {
	resp, err := r.client.Do(ctx, http.MethodPatch, r.path(id.String()), record, nil)
	if err != nil {
		return err
	}
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("update %s/%s: %w", r.name, id, err)
	}
	drain(resp)
	return nil
}

// Delete removes one record.
func (r *RecordAPI[T]) Delete(ctx context.Context, id RecordID) error {
	resp, err := r.client.Do(ctx, http.MethodDelete, r.path(id.String()), nil, nil)
	if err != nil {
		return err
	}
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("delete %s/%s: %w", r.name, id, err)
	}
	drain(resp)
	return nil
}

// List fetches one page of records.
func (r *RecordAPI[T]) List(ctx context.Context, args *ListArguments) (*ListResponse[T], error) {
	resp, err := r.client.Do(ctx, http.MethodGet, r.path(), nil, args.params())
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.name, err)
	}
	defer resp.Body.Close()

	var page ListResponse[T]
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("list %s: decode: %w", r.name, err)
	}
	return &page, nil
}

// Subscribe opens a change-notification stream for one record. The caller
// must Close the subscription; stopping consumption and closing is the only
// cancellation mechanism.
func (r *RecordAPI[T]) Subscribe(ctx context.Context, id RecordID) (*Subscription, error) {
	stream, err := r.client.Stream(ctx, http.MethodGet, r.path("subscribe", id.String()), nil)
	if err != nil {
		return nil, err
	}

	if code := stream.StatusCode(); code < 200 || code >= 300 {
		body, _ := readLimited(stream.body())
		_ = stream.Close()
		return nil, fmt.Errorf("subscribe %s/%s: %w", r.name, id,
			&StatusError{StatusCode: code, Body: body})
	}

	return &Subscription{stream: stream}, nil
}

func (r *RecordAPI[T]) path(elem ...string) string {
	parts := append([]string{recordAPI, r.name}, elem...)
	return strings.Join(parts, "/")
}

func decodeRecordIDs(body io.Reader) ([]RecordID, error) {
	var ids idsResponse
	if err := json.NewDecoder(body).Decode(&ids); err != nil {
		return nil, fmt.Errorf("decode ids: %w", err)
	}

	out := make([]RecordID, len(ids.Ids))
	for i, id := range ids.Ids {
		out[i] = StringID(id)
	}
	return out, nil
}
