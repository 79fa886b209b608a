package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"time"

	"github.com/sandevgo/tuskmem/internal/core"
)

var (
	ErrKindMismatch = errors.New("memory item kind does not match its body")
	ErrInvalidItem  = errors.New("invalid memory item")
)

type Kind string

const (
	KindMessage  Kind = "message"
	KindSummary  Kind = "summary"
	KindFact     Kind = "fact"
	KindMetadata Kind = "metadata"
)

const (
	DefaultImportance  = 0.5
	DefaultSummaryType = "incremental"
)

func (k Kind) valid() bool {
	switch k {
	case KindMessage, KindSummary, KindFact, KindMetadata:
		return true
	}
	return false
}

// Body is the variant part of an Item. Metadata items carry none.
type Body interface {
	Kind() Kind
	sealed()
}

type MessageBody struct {
	Role string
}

type SummaryBody struct {
	SummaryType      string
	SourceMessageIDs []string
}

// FactBody.Value holds a string, bool, int64 or float64 once the item is built.
type FactBody struct {
	Entity          string
	Attribute       string
	Value           any
	SourceMessageID string
}

func (MessageBody) Kind() Kind { return KindMessage }
func (SummaryBody) Kind() Kind { return KindSummary }
func (FactBody) Kind() Kind    { return KindFact }

func (MessageBody) sealed() {}
func (SummaryBody) sealed() {}
func (FactBody) sealed()    {}

// Item is one unit of memory. It is immutable once built by NewItem.
type Item struct {
	id         string
	sessionID  string
	userID     string
	kind       Kind
	content    string
	importance float64
	createdAt  time.Time
	metadata   map[string]any
	body       Body
}

type Option func(*Item)

func WithID(id string) Option {
	return func(i *Item) { i.id = id }
}

func WithImportance(v float64) Option {
	return func(i *Item) { i.importance = v }
}

func WithCreatedAt(t time.Time) Option {
	return func(i *Item) { i.createdAt = t.UTC() }
}

func WithMetadata(md map[string]any) Option {
	return func(i *Item) { i.metadata = maps.Clone(md) }
}

// NewItem validates and builds an item. For facts content must be empty,
// it is derived from the body.
func NewItem(kind Kind, sessionID, userID, content string, body Body, opts ...Option) (Item, error) {
	if !kind.valid() {
		return Item{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, kind)
	}
	if err := checkBody(kind, body); err != nil {
		return Item{}, err
	}

	it := Item{
		sessionID:  sessionID,
		userID:     userID,
		kind:       kind,
		content:    content,
		importance: DefaultImportance,
		createdAt:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&it)
	}
	md, err := normalizeMetadata(it.metadata)
	if err != nil {
		return Item{}, err
	}
	it.metadata = md

	switch {
	case sessionID == "":
		return Item{}, fmt.Errorf("%w: empty session id", ErrInvalidItem)
	case userID == "":
		return Item{}, fmt.Errorf("%w: empty user id", ErrInvalidItem)
	case math.IsNaN(it.importance) || it.importance < 0 || it.importance > 1:
		return Item{}, fmt.Errorf("%w: importance %v outside [0,1]", ErrInvalidItem, it.importance)
	}

	switch b := body.(type) {
	case MessageBody:
		if !core.IsValidRole(b.Role) {
			return Item{}, fmt.Errorf("%w: unknown role %q", ErrInvalidItem, b.Role)
		}
		it.body = b
	case SummaryBody:
		if b.SummaryType == "" {
			b.SummaryType = DefaultSummaryType
		}
		b.SourceMessageIDs = slices.Clone(b.SourceMessageIDs)
		if b.SourceMessageIDs == nil {
			b.SourceMessageIDs = []string{}
		}
		it.body = b
	case FactBody:
		if content != "" {
			return Item{}, fmt.Errorf("%w: fact content is derived and cannot be set", ErrInvalidItem)
		}
		if b.Entity == "" || b.Attribute == "" {
			return Item{}, fmt.Errorf("%w: fact needs entity and attribute", ErrInvalidItem)
		}
		v, err := normalizeValue(b.Value)
		if err != nil {
			return Item{}, err
		}
		b.Value = v
		it.body = b
		it.content = fmt.Sprintf("%s %s: %v", b.Entity, b.Attribute, v)
	}

	return it, nil
}

func NewMessage(sessionID, userID, content, role string, opts ...Option) (Item, error) {
	return NewItem(KindMessage, sessionID, userID, content, MessageBody{Role: role}, opts...)
}

func NewSummary(sessionID, userID, content string, body SummaryBody, opts ...Option) (Item, error) {
	return NewItem(KindSummary, sessionID, userID, content, body, opts...)
}

func NewFact(sessionID, userID string, body FactBody, opts ...Option) (Item, error) {
	return NewItem(KindFact, sessionID, userID, "", body, opts...)
}

func checkBody(kind Kind, body Body) error {
	if kind == KindMetadata {
		if body != nil {
			return fmt.Errorf("%w: metadata item with %s body", ErrKindMismatch, body.Kind())
		}
		return nil
	}
	if body == nil {
		return fmt.Errorf("%w: %s item without body", ErrInvalidItem, kind)
	}
	if body.Kind() != kind {
		return fmt.Errorf("%w: %s item with %s body", ErrKindMismatch, kind, body.Kind())
	}
	return nil
}

func normalizeValue(v any) (any, error) {
	if x, ok := scalar(v); ok {
		return x, nil
	}
	return nil, fmt.Errorf("%w: fact value of type %T", ErrInvalidItem, v)
}

// scalar maps integers to int64 and floats to float64.
func scalar(v any) (any, bool) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, false
		}
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return nil, false
		}
		return int64(x), true
	case float32:
		return float64(x), true
	}
	return nil, false
}

// normalizeMetadata deep-copies md into the shapes a snapshot reads back:
// scalars as in scalar, times as RFC 3339 strings, string-keyed maps as
// map[string]any and slices as []any.
func normalizeMetadata(md map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(md))
	for k, v := range md {
		nv, err := metaValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata %q: %v", ErrInvalidItem, k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func metaValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if x, ok := scalar(v); ok {
		return x, nil
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows int64", rv.Uint())
		}
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			nv, err := metaValue(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", iter.Key().String(), err)
			}
			out[iter.Key().String()] = nv
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			nv, err := metaValue(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}

func (i Item) ID() string           { return i.id }
func (i Item) SessionID() string    { return i.sessionID }
func (i Item) UserID() string       { return i.userID }
func (i Item) Kind() Kind           { return i.kind }
func (i Item) Content() string      { return i.content }
func (i Item) Importance() float64  { return i.importance }
func (i Item) CreatedAt() time.Time { return i.createdAt }

// Metadata returns a copy.
func (i Item) Metadata() map[string]any {
	return maps.Clone(i.metadata)
}

// Role is empty for anything but messages.
func (i Item) Role() string {
	if b, ok := i.body.(MessageBody); ok {
		return b.Role
	}
	return ""
}

func (i Item) Message() (MessageBody, bool) {
	b, ok := i.body.(MessageBody)
	return b, ok
}

func (i Item) Summary() (SummaryBody, bool) {
	b, ok := i.body.(SummaryBody)
	if ok {
		b.SourceMessageIDs = slices.Clone(b.SourceMessageIDs)
	}
	return b, ok
}

func (i Item) Fact() (FactBody, bool) {
	b, ok := i.body.(FactBody)
	return b, ok
}

type itemJSON struct {
	ID               string         `json:"id,omitempty"`
	SessionID        string         `json:"session_id"`
	UserID           string         `json:"user_id"`
	Kind             Kind           `json:"kind"`
	Content          string         `json:"content"`
	Importance       float64        `json:"importance"`
	CreatedAt        time.Time      `json:"created_at"`
	Metadata         map[string]any `json:"metadata"`
	Role             string         `json:"role,omitempty"`
	SummaryType      string         `json:"summary_type,omitempty"`
	SourceMessageIDs []string       `json:"source_message_ids,omitempty"`
	Entity           string         `json:"entity,omitempty"`
	Attribute        string         `json:"attribute,omitempty"`
	Value            any            `json:"value,omitempty"`
	SourceMessageID  string         `json:"source_message_id,omitempty"`
}

func (i Item) MarshalJSON() ([]byte, error) {
	out := itemJSON{
		ID:         i.id,
		SessionID:  i.sessionID,
		UserID:     i.userID,
		Kind:       i.kind,
		Content:    i.content,
		Importance: i.importance,
		CreatedAt:  i.createdAt,
		Metadata:   i.metadata,
	}
	switch b := i.body.(type) {
	case MessageBody:
		out.Role = b.Role
	case SummaryBody:
		out.SummaryType = b.SummaryType
		out.SourceMessageIDs = b.SourceMessageIDs
	case FactBody:
		out.Entity = b.Entity
		out.Attribute = b.Attribute
		out.Value = b.Value
		out.SourceMessageID = b.SourceMessageID
	}
	return json.Marshal(out)
}
