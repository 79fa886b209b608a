package memory

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem_Defaults(t *testing.T) {
	before := time.Now().UTC()
	it, err := NewMessage("s1", "u1", "hello", "human")
	require.NoError(t, err)

	assert.Equal(t, KindMessage, it.Kind())
	assert.Equal(t, "hello", it.Content())
	assert.Equal(t, "human", it.Role())
	assert.Empty(t, it.ID())
	assert.InDelta(t, DefaultImportance, it.Importance(), 1e-9)
	assert.NotNil(t, it.Metadata())
	assert.Empty(t, it.Metadata())
	assert.False(t, it.CreatedAt().Before(before))
	assert.Equal(t, time.UTC, it.CreatedAt().Location())
}

func TestNewItem_KindMismatch(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		body Body
	}{
		{name: "message tagged summary", kind: KindSummary, body: MessageBody{Role: "human"}},
		{name: "summary tagged fact", kind: KindFact, body: SummaryBody{}},
		{name: "fact tagged message", kind: KindMessage, body: FactBody{Entity: "a", Attribute: "b", Value: 1}},
		{name: "metadata with body", kind: KindMetadata, body: MessageBody{Role: "ai"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewItem(tt.kind, "s", "u", "", tt.body)
			require.ErrorIs(t, err, ErrKindMismatch)
		})
	}
}

func TestNewItem_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Item, error)
	}{
		{name: "empty session", build: func() (Item, error) { return NewMessage("", "u", "x", "human") }},
		{name: "empty user", build: func() (Item, error) { return NewMessage("s", "", "x", "human") }},
		{name: "bad role", build: func() (Item, error) { return NewMessage("s", "u", "x", "robot") }},
		{name: "importance above one", build: func() (Item, error) {
			return NewMessage("s", "u", "x", "ai", WithImportance(1.5))
		}},
		{name: "negative importance", build: func() (Item, error) {
			return NewMessage("s", "u", "x", "ai", WithImportance(-0.1))
		}},
		{name: "missing body", build: func() (Item, error) { return NewItem(KindSummary, "s", "u", "x", nil) }},
		{name: "unknown kind", build: func() (Item, error) { return NewItem(Kind("episode"), "s", "u", "x", nil) }},
		{name: "fact with content", build: func() (Item, error) {
			return NewItem(KindFact, "s", "u", "set", FactBody{Entity: "a", Attribute: "b", Value: "c"})
		}},
		{name: "fact without entity", build: func() (Item, error) {
			return NewFact("s", "u", FactBody{Attribute: "b", Value: "c"})
		}},
		{name: "fact with slice value", build: func() (Item, error) {
			return NewFact("s", "u", FactBody{Entity: "a", Attribute: "b", Value: []int{1}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.ErrorIs(t, err, ErrInvalidItem)
		})
	}
}

func TestNewFact_DerivedContent(t *testing.T) {
	tests := []struct {
		value       any
		wantValue   any
		wantContent string
	}{
		{value: "Paris", wantValue: "Paris", wantContent: "France capital: Paris"},
		{value: 42, wantValue: int64(42), wantContent: "France capital: 42"},
		{value: uint8(7), wantValue: int64(7), wantContent: "France capital: 7"},
		{value: float32(1.5), wantValue: float64(1.5), wantContent: "France capital: 1.5"},
		{value: true, wantValue: true, wantContent: "France capital: true"},
	}

	for _, tt := range tests {
		it, err := NewFact("s", "u", FactBody{Entity: "France", Attribute: "capital", Value: tt.value})
		require.NoError(t, err)

		fact, ok := it.Fact()
		require.True(t, ok)
		assert.Equal(t, tt.wantValue, fact.Value)
		assert.Equal(t, tt.wantContent, it.Content())
	}
}

func TestNewSummary_Defaults(t *testing.T) {
	ids := []string{"m1", "m2"}
	it, err := NewSummary("s", "u", "they talked", SummaryBody{SourceMessageIDs: ids})
	require.NoError(t, err)

	sum, ok := it.Summary()
	require.True(t, ok)
	assert.Equal(t, DefaultSummaryType, sum.SummaryType)
	assert.Equal(t, ids, sum.SourceMessageIDs)

	ids[0] = "changed"
	sum.SourceMessageIDs[1] = "changed"
	again, _ := it.Summary()
	assert.Equal(t, []string{"m1", "m2"}, again.SourceMessageIDs)
}

func TestItem_MetadataIsCopied(t *testing.T) {
	md := map[string]any{"request_id": "r1"}
	it, err := NewMessage("s", "u", "x", "ai", WithMetadata(md))
	require.NoError(t, err)

	md["request_id"] = "changed"
	got := it.Metadata()
	got["extra"] = true

	assert.Equal(t, map[string]any{"request_id": "r1"}, it.Metadata())
}

func TestNewItem_Metadata(t *testing.T) {
	it, err := NewItem(KindMetadata, "s", "u", "session started", nil)
	require.NoError(t, err)
	assert.Equal(t, KindMetadata, it.Kind())
	assert.Empty(t, it.Role())

	_, ok := it.Message()
	assert.False(t, ok)
}

func TestItem_MarshalJSON(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	it, err := NewMessage("s1", "u1", "hi", "ai",
		WithID("42"),
		WithCreatedAt(at),
		WithMetadata(map[string]any{"sentiment": "positive"}),
	)
	require.NoError(t, err)

	data, err := json.Marshal(it)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "42",
		"session_id": "s1",
		"user_id": "u1",
		"kind": "message",
		"content": "hi",
		"importance": 0.5,
		"created_at": "2025-01-02T03:04:05Z",
		"metadata": {"sentiment": "positive"},
		"role": "ai"
	}`, string(data))
}

type label string

func TestNewItem_MetadataNormalized(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 600, time.FixedZone("X", 3600))

	it, err := NewMessage("s", "u", "x", "ai", WithMetadata(map[string]any{
		"int":     3,
		"uint":    uint32(7),
		"float":   float32(0.5),
		"time":    at,
		"named":   label("tag"),
		"tags":    []string{"a", "b"},
		"headers": map[string]string{"k": "v"},
		"nothing": nil,
	}))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"int":     int64(3),
		"uint":    int64(7),
		"float":   float64(0.5),
		"time":    "2024-01-02T02:04:05.0000006Z",
		"named":   "tag",
		"tags":    []any{"a", "b"},
		"headers": map[string]any{"k": "v"},
		"nothing": nil,
	}, it.Metadata())
}

func TestNewItem_MetadataRejected(t *testing.T) {
	tests := map[string]any{
		"uint64 overflow": uint64(1 << 63),
		"nested overflow": map[string]any{"n": []any{uint(1 << 63)}},
		"int keys":        map[int]string{1: "a"},
		"channel":         make(chan int),
		"pointer":         new(int),
	}

	for name, v := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewMessage("s", "u", "x", "ai", WithMetadata(map[string]any{"v": v}))
			require.ErrorIs(t, err, ErrInvalidItem)
		})
	}
}
