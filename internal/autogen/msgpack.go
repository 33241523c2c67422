package autogen

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Supported record versions.
const (
	MinVersion = 2
	MaxVersion = 2
)

// reservedSymbols occupy the first slots of the symbol table, indexed by
// DefinitionKind.
var reservedSymbols = []string{"module", "class", "casgn", "alias"}

var refAttrs = map[int][]string{
	2: {
		"scope",
		"name",
		"nesting",
		"expression_range",
		"expression_pos_range",
		"resolved",
		"is_defining_ref",
		"parent_of",
	},
}

var defAttrs = map[int][]string{
	2: {
		"raw_full_name",
		"type",
		"defines_behavior",
		"is_empty",
		"parent_ref",
		"aliased_ref",
		"defining_ref",
	},
}

// ToMsgpack encodes the graph as a versioned record: a header map describing
// the symbol table and attribute layout, followed by the payload array.
func (pf *ParsedFile) ToMsgpack(version int) ([]byte, error) {
	if version < MinVersion || version > MaxVersion {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrUnsupportedVersion, version, MinVersion, MaxVersion)
	}

	w := &msgpackWriter{
		refAttrs:  refAttrs[version],
		defAttrs:  defAttrs[version],
		symbols:   append([]string(nil), reservedSymbols...),
		symbolIDs: make(map[string]uint32),
	}
	w.enc = msgpack.NewEncoder(&w.payload)

	if err := w.pack(pf); err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	var out bytes.Buffer
	if err := w.packHeader(msgpack.NewEncoder(&out), pf); err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	out.Write(w.payload.Bytes())
	return out.Bytes(), nil
}

type msgpackWriter struct {
	refAttrs  []string
	defAttrs  []string
	payload   bytes.Buffer
	enc       *msgpack.Encoder
	symbols   []string
	symbolIDs map[string]uint32
}

// errWriter keeps the first encoder error so packing code reads linearly.
type errWriter struct {
	err error
}

func (e *errWriter) do(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (w *msgpackWriter) packName(ew *errWriter, name string) {
	id, ok := w.symbolIDs[name]
	if !ok {
		id = uint32(len(w.symbols))
		w.symbols = append(w.symbols, name)
		w.symbolIDs[name] = id
	}
	ew.do(w.enc.EncodeUint32(id))
}

func (w *msgpackWriter) packNames(ew *errWriter, names []string) {
	ew.do(w.enc.EncodeArrayLen(len(names)))
	for _, name := range names {
		w.packName(ew, name)
	}
}

func (w *msgpackWriter) packReferenceRef(ew *errWriter, ref ReferenceRef) {
	if !ref.Exists() {
		ew.do(w.enc.EncodeNil())
		return
	}
	ew.do(w.enc.EncodeUint16(uint16(ref)))
}

func (w *msgpackWriter) packDefinitionRef(ew *errWriter, def DefinitionRef) {
	if !def.Exists() {
		ew.do(w.enc.EncodeNil())
		return
	}
	ew.do(w.enc.EncodeUint16(uint16(def)))
}

func (w *msgpackWriter) packRange(ew *errWriter, begin, end uint32) {
	ew.do(w.enc.EncodeUint64(uint64(begin)<<32 | uint64(end)))
}

func (w *msgpackWriter) pack(pf *ParsedFile) error {
	ew := &errWriter{}

	ew.do(w.enc.EncodeArrayLen(6))
	ew.do(w.enc.EncodeBool(true)) // did_resolution
	ew.do(w.enc.EncodeString(pf.Path))
	ew.do(w.enc.EncodeUint32(pf.Checksum))

	requires := slices.Sorted(slices.Values(pf.Requires))
	ew.do(w.enc.EncodeArrayLen(len(requires)))
	for _, req := range requires {
		ew.do(w.enc.EncodeString(req))
	}

	ew.do(w.enc.EncodeArrayLen(len(pf.Defs)))
	for i := range pf.Defs {
		def := &pf.Defs[i]
		ew.do(w.enc.EncodeArrayLen(len(w.defAttrs)))
		w.packNames(ew, pf.FullName(def.ID))
		ew.do(w.enc.EncodeUint8(uint8(def.Kind)))
		ew.do(w.enc.EncodeBool(def.DefinesBehavior))
		ew.do(w.enc.EncodeBool(def.IsEmpty))
		w.packReferenceRef(ew, def.ParentRef)
		w.packReferenceRef(ew, def.AliasedRef)
		w.packReferenceRef(ew, def.DefiningRef)
	}

	ew.do(w.enc.EncodeArrayLen(len(pf.Refs)))
	for i := range pf.Refs {
		ref := &pf.Refs[i]
		ew.do(w.enc.EncodeArrayLen(len(w.refAttrs)))
		w.packDefinitionRef(ew, ref.Scope)
		w.packNames(ew, ref.Name)
		ew.do(w.enc.EncodeArrayLen(len(ref.Nesting)))
		for _, scope := range ref.Nesting {
			w.packDefinitionRef(ew, scope)
		}
		w.packRange(ew, ref.DefinitionLoc.BeginLine, ref.DefinitionLoc.EndLine)
		w.packRange(ew, ref.Loc.BeginPos, ref.Loc.EndPos)
		if len(ref.Resolved) == 0 {
			ew.do(w.enc.EncodeNil())
		} else {
			w.packNames(ew, ref.Resolved)
		}
		ew.do(w.enc.EncodeBool(ref.IsDefiningRef))
		w.packDefinitionRef(ew, ref.ParentOf)
	}

	return ew.err
}

func (w *msgpackWriter) packHeader(enc *msgpack.Encoder, pf *ParsedFile) error {
	ew := &errWriter{}
	ew.do(enc.EncodeMapLen(5))

	ew.do(enc.EncodeString("symbols"))
	ew.do(enc.EncodeArrayLen(len(w.symbols)))
	for _, sym := range w.symbols {
		ew.do(enc.EncodeString(sym))
	}

	ew.do(enc.EncodeString("ref_count"))
	ew.do(enc.EncodeUint32(uint32(len(pf.Refs))))
	ew.do(enc.EncodeString("def_count"))
	ew.do(enc.EncodeUint32(uint32(len(pf.Defs))))

	ew.do(enc.EncodeString("ref_attrs"))
	ew.do(enc.EncodeArrayLen(len(w.refAttrs)))
	for _, attr := range w.refAttrs {
		ew.do(enc.EncodeString(attr))
	}

	ew.do(enc.EncodeString("def_attrs"))
	ew.do(enc.EncodeArrayLen(len(w.defAttrs)))
	for _, attr := range w.defAttrs {
		ew.do(enc.EncodeString(attr))
	}
	return ew.err
}

// Header is the leading map of an encoded record.
type Header struct {
	Symbols  []string
	RefCount uint32
	DefCount uint32
	RefAttrs []string
	DefAttrs []string
}

// RecordDefinition is one decoded definition tuple with names expanded
// through the symbol table.
type RecordDefinition struct {
	FullName        []string
	Kind            DefinitionKind
	DefinesBehavior bool
	IsEmpty         bool
	ParentRef       ReferenceRef
	AliasedRef      ReferenceRef
	DefiningRef     ReferenceRef
}

// RecordReference is one decoded reference tuple.
type RecordReference struct {
	Scope           DefinitionRef
	Name            []string
	Nesting         []DefinitionRef
	ExpressionRange uint64
	PositionRange   uint64
	Resolved        []string
	IsDefiningRef   bool
	ParentOf        DefinitionRef
}

// Record is a fully decoded graph record.
type Record struct {
	Header        Header
	DidResolution bool
	Path          string
	Checksum      uint32
	Requires      []string
	Defs          []RecordDefinition
	Refs          []RecordReference
}

// ReadHeader decodes only the header of an encoded record.
func ReadHeader(r io.Reader) (*Header, error) {
	return readHeader(msgpack.NewDecoder(r))
}

func readHeader(dec *msgpack.Decoder) (*Header, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	h := &Header{}
	for range n {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, fmt.Errorf("failed to read header key: %w", err)
		}
		switch key {
		case "symbols":
			h.Symbols, err = decodeStrings(dec)
		case "ref_count":
			h.RefCount, err = dec.DecodeUint32()
		case "def_count":
			h.DefCount, err = dec.DecodeUint32()
		case "ref_attrs":
			h.RefAttrs, err = decodeStrings(dec)
		case "def_attrs":
			h.DefAttrs, err = decodeStrings(dec)
		default:
			err = dec.Skip()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read header field %q: %w", key, err)
		}
	}
	return h, nil
}

// Decode reads a whole record, expanding symbol ids back into names.
func Decode(r io.Reader) (*Record, error) {
	dec := msgpack.NewDecoder(r)
	h, err := readHeader(dec)
	if err != nil {
		return nil, err
	}

	rd := &recordReader{dec: dec, symbols: h.Symbols}
	rec := &Record{Header: *h}

	rd.arrayLen(6)
	rec.DidResolution = rd.readBool()
	rec.Path = rd.readString()
	rec.Checksum = uint32(rd.readUint())

	for range rd.arrayLen(-1) {
		rec.Requires = append(rec.Requires, rd.readString())
	}

	for range rd.arrayLen(int(h.DefCount)) {
		rd.arrayLen(len(h.DefAttrs))
		rec.Defs = append(rec.Defs, RecordDefinition{
			FullName:        rd.names(),
			Kind:            DefinitionKind(rd.readUint()),
			DefinesBehavior: rd.readBool(),
			IsEmpty:         rd.readBool(),
			ParentRef:       ReferenceRef(rd.optional()),
			AliasedRef:      ReferenceRef(rd.optional()),
			DefiningRef:     ReferenceRef(rd.optional()),
		})
	}

	for range rd.arrayLen(int(h.RefCount)) {
		rd.arrayLen(len(h.RefAttrs))
		ref := RecordReference{
			Scope: DefinitionRef(rd.optional()),
			Name:  rd.names(),
		}
		for range rd.arrayLen(-1) {
			ref.Nesting = append(ref.Nesting, DefinitionRef(rd.optional()))
		}
		ref.ExpressionRange = rd.readUint()
		ref.PositionRange = rd.readUint()
		if !rd.readNil() {
			ref.Resolved = rd.names()
		}
		ref.IsDefiningRef = rd.readBool()
		ref.ParentOf = DefinitionRef(rd.optional())
		rec.Refs = append(rec.Refs, ref)
	}

	if rd.err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", rd.err)
	}
	return rec, nil
}

func decodeStrings(dec *msgpack.Decoder) ([]string, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, max(n, 0))
	for range n {
		s, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// recordReader decodes payload values, remembering the first error. Reads
// after an error return zero values.
type recordReader struct {
	dec     *msgpack.Decoder
	symbols []string
	err     error
}

func (r *recordReader) fail(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// arrayLen reads an array header, checking it against want unless want is
// negative.
func (r *recordReader) arrayLen(want int) int {
	if r.err != nil {
		return 0
	}
	n, err := r.dec.DecodeArrayLen()
	if err != nil {
		r.fail(err)
		return 0
	}
	if want >= 0 && n != want {
		r.fail(fmt.Errorf("array length %d, expected %d", n, want))
		return 0
	}
	return max(n, 0)
}

func (r *recordReader) readBool() bool {
	if r.err != nil {
		return false
	}
	v, err := r.dec.DecodeBool()
	r.fail(err)
	return v
}

func (r *recordReader) readString() string {
	if r.err != nil {
		return ""
	}
	v, err := r.dec.DecodeString()
	r.fail(err)
	return v
}

func (r *recordReader) readUint() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.DecodeUint64()
	r.fail(err)
	return v
}

// readNil consumes a nil value if one is next.
func (r *recordReader) readNil() bool {
	if r.err != nil {
		return false
	}
	code, err := r.dec.PeekCode()
	if err != nil {
		r.fail(err)
		return false
	}
	if code != msgpcode.Nil {
		return false
	}
	r.fail(r.dec.DecodeNil())
	return true
}

// optional reads a nullable id, mapping nil to -1.
func (r *recordReader) optional() int32 {
	if r.readNil() {
		return -1
	}
	if r.err != nil {
		return -1
	}
	return int32(r.readUint())
}

func (r *recordReader) names() []string {
	n := r.arrayLen(-1)
	out := make([]string, 0, n)
	for range n {
		id := r.readUint()
		if r.err != nil {
			return nil
		}
		if id >= uint64(len(r.symbols)) {
			r.fail(fmt.Errorf("symbol id %d out of range", id))
			return nil
		}
		out = append(out, r.symbols[id])
	}
	return out
}
