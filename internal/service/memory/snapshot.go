package memory

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot layout:
//
//	magic "TUSKMEM\x00" | version uint16 BE | count uvarint | count x (len uvarint | CBOR record)
//
// Records use integer keys. New fields get new keys, decoders skip unknown ones.
const (
	snapshotVersion uint16 = 1
	maxRecordSize          = 16 << 20
)

var (
	snapshotMagic = []byte("TUSKMEM\x00")

	ErrCorruptSnapshot = errors.New("corrupt memory snapshot")

	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{Sort: cbor.SortCoreDeterministic}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

type factValueType uint8

const (
	valueString factValueType = iota + 1
	valueInt
	valueFloat
	valueBool
)

type record struct {
	ID         string         `cbor:"1,keyasint,omitempty"`
	SessionID  string         `cbor:"2,keyasint"`
	UserID     string         `cbor:"3,keyasint"`
	Kind       Kind           `cbor:"4,keyasint"`
	Content    string         `cbor:"5,keyasint,omitempty"`
	Importance float64        `cbor:"6,keyasint"`
	CreatedAt  int64          `cbor:"7,keyasint"`
	Metadata   map[string]any `cbor:"8,keyasint,omitempty"`

	Role string `cbor:"9,keyasint,omitempty"`

	SummaryType      string   `cbor:"10,keyasint,omitempty"`
	SourceMessageIDs []string `cbor:"11,keyasint,omitempty"`

	Entity          string        `cbor:"12,keyasint,omitempty"`
	Attribute       string        `cbor:"13,keyasint,omitempty"`
	ValueType       factValueType `cbor:"14,keyasint,omitempty"`
	StringValue     string        `cbor:"15,keyasint,omitempty"`
	IntValue        int64         `cbor:"16,keyasint,omitempty"`
	FloatValue      float64       `cbor:"17,keyasint,omitempty"`
	BoolValue       bool          `cbor:"18,keyasint,omitempty"`
	SourceMessageID string        `cbor:"19,keyasint,omitempty"`
}

func toRecord(it Item) record {
	r := record{
		ID:         it.id,
		SessionID:  it.sessionID,
		UserID:     it.userID,
		Kind:       it.kind,
		Content:    it.content,
		Importance: it.importance,
		CreatedAt:  it.createdAt.UnixNano(),
		Metadata:   it.metadata,
	}

	switch b := it.body.(type) {
	case MessageBody:
		r.Role = b.Role
	case SummaryBody:
		r.SummaryType = b.SummaryType
		r.SourceMessageIDs = b.SourceMessageIDs
	case FactBody:
		r.Content = ""
		r.Entity = b.Entity
		r.Attribute = b.Attribute
		r.SourceMessageID = b.SourceMessageID
		switch v := b.Value.(type) {
		case string:
			r.ValueType, r.StringValue = valueString, v
		case int64:
			r.ValueType, r.IntValue = valueInt, v
		case float64:
			r.ValueType, r.FloatValue = valueFloat, v
		case bool:
			r.ValueType, r.BoolValue = valueBool, v
		}
	}
	return r
}

func (r record) toItem() (Item, error) {
	opts := []Option{
		WithID(r.ID),
		WithImportance(r.Importance),
		WithCreatedAt(time.Unix(0, r.CreatedAt)),
		WithMetadata(r.Metadata),
	}

	var body Body
	switch r.Kind {
	case KindMessage:
		body = MessageBody{Role: r.Role}
	case KindSummary:
		body = SummaryBody{SummaryType: r.SummaryType, SourceMessageIDs: r.SourceMessageIDs}
	case KindFact:
		fb := FactBody{Entity: r.Entity, Attribute: r.Attribute, SourceMessageID: r.SourceMessageID}
		switch r.ValueType {
		case valueString:
			fb.Value = r.StringValue
		case valueInt:
			fb.Value = r.IntValue
		case valueFloat:
			fb.Value = r.FloatValue
		case valueBool:
			fb.Value = r.BoolValue
		default:
			return Item{}, fmt.Errorf("unknown fact value type %d", r.ValueType)
		}
		body = fb
	}

	return NewItem(r.Kind, r.SessionID, r.UserID, r.Content, body, opts...)
}

func encodeSnapshot(w io.Writer, items []Item) error {
	bw := bufio.NewWriter(w)

	var header [10]byte
	copy(header[:], snapshotMagic)
	binary.BigEndian.PutUint16(header[8:], snapshotVersion)
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}

	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(items)))
	if _, err := bw.Write(lenBuf[:n]); err != nil {
		return err
	}

	for _, it := range items {
		data, err := encMode.Marshal(toRecord(it))
		if err != nil {
			return fmt.Errorf("failed to encode item: %w", err)
		}
		n := binary.PutUvarint(lenBuf[:], uint64(len(data)))
		if _, err := bw.Write(lenBuf[:n]); err != nil {
			return err
		}
		if _, err := bw.Write(data); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func decodeSnapshot(r io.Reader) ([]Item, error) {
	br := bufio.NewReader(r)

	var header [10]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorruptSnapshot, err)
	}
	if !bytes.Equal(header[:8], snapshotMagic) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptSnapshot)
	}
	if v := binary.BigEndian.Uint16(header[8:]); v != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, v)
	}

	count, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("%w: count: %v", ErrCorruptSnapshot, err)
	}

	items := make([]Item, 0, min(count, 1024))
	for i := uint64(0); i < count; i++ {
		size, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d length: %v", ErrCorruptSnapshot, i, err)
		}
		if size > maxRecordSize {
			return nil, fmt.Errorf("%w: record %d is %d bytes", ErrCorruptSnapshot, i, size)
		}

		data := make([]byte, size)
		if _, err := io.ReadFull(br, data); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorruptSnapshot, i, err)
		}

		var rec record
		if err := decMode.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorruptSnapshot, i, err)
		}
		it, err := rec.toItem()
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorruptSnapshot, i, err)
		}
		items = append(items, it)
	}

	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrCorruptSnapshot)
	}
	return items, nil
}

// writeSnapshot replaces path atomically.
func writeSnapshot(path string, items []Item) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encodeSnapshot(tmp, items); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// readSnapshot returns (nil, nil) when no snapshot exists.
func readSnapshot(path string) ([]Item, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return decodeSnapshot(f)
}
