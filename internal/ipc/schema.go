package ipc

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/GriffinCanCode/horizon/internal/result"
)

// Descriptor field types for Method request and response structs. Senders
// fill Data; receivers get a View resolved by the Parser.
type (
	ReadBuffer struct {
		Data []byte
		View View
	}
	WriteBuffer struct {
		Data []byte
		View View
	}
	ReadWriteBuffer struct {
		Data []byte
		View View
	}
	StaticBuffer struct {
		ID   int
		Data []byte
		View View
	}
	HandleList struct {
		Handles []uint32
		Move    bool
	}
	// ProcessID is stamped by the kernel; senders leave PID zero.
	ProcessID struct {
		PID uint32
	}
)

type fieldKind uint8

const (
	fieldWord fieldKind = iota
	fieldDouble
	fieldFlat
	fieldRead
	fieldWrite
	fieldReadWrite
	fieldStatic
	fieldHandles
	fieldProcessID
)

type field struct {
	index int
	name  string
	kind  fieldKind
	words int
}

type shape struct {
	typ    reflect.Type
	fields []field
	normal int
}

var descriptorKinds = map[reflect.Type]fieldKind{
	reflect.TypeFor[ReadBuffer]():      fieldRead,
	reflect.TypeFor[WriteBuffer]():     fieldWrite,
	reflect.TypeFor[ReadWriteBuffer](): fieldReadWrite,
	reflect.TypeFor[StaticBuffer]():    fieldStatic,
	reflect.TypeFor[HandleList]():      fieldHandles,
	reflect.TypeFor[ProcessID]():       fieldProcessID,
}

func shapeOf(op string, typ reflect.Type) *shape {
	if typ.Kind() != reflect.Struct {
		misuse(op, "%s is not a struct", typ)
	}
	s := &shape{typ: typ}
	described := false
	for i := range typ.NumField() {
		sf := typ.Field(i)
		if !sf.IsExported() || sf.Tag.Get("ipc") == "-" {
			continue
		}
		f := field{index: i, name: sf.Name}
		if kind, ok := descriptorKinds[sf.Type]; ok {
			f.kind = kind
			described = true
			s.fields = append(s.fields, f)
			continue
		}
		if described {
			misuse(op, "%s.%s: normal field declared after a descriptor", typ, sf.Name)
		}
		switch sf.Type.Kind() {
		case reflect.Bool, reflect.Int8, reflect.Int16, reflect.Int32,
			reflect.Uint8, reflect.Uint16, reflect.Uint32:
			f.kind, f.words = fieldWord, 1
		case reflect.Int64, reflect.Uint64:
			f.kind, f.words = fieldDouble, 2
		case reflect.Array, reflect.Struct:
			size := binary.Size(reflect.Zero(sf.Type).Interface())
			if size < 0 {
				misuse(op, "%s.%s: %s is not fixed size", typ, sf.Name, sf.Type)
			}
			f.kind, f.words = fieldFlat, (size+3)/4
		default:
			misuse(op, "%s.%s: unsupported type %s", typ, sf.Name, sf.Type)
		}
		s.normal += f.words
		s.fields = append(s.fields, f)
	}
	return s
}

func (s *shape) encode(b *Builder, v reflect.Value) {
	for _, f := range s.fields {
		fv := v.Field(f.index)
		switch f.kind {
		case fieldWord:
			b.Push(wordOf(fv))
		case fieldDouble:
			if fv.Kind() == reflect.Int64 {
				b.PushU64(uint64(fv.Int()))
			} else {
				b.PushU64(fv.Uint())
			}
		case fieldFlat:
			b.PushStruct(fv.Interface())
		case fieldRead:
			b.PushReadBuffer(fv.Interface().(ReadBuffer).Data)
		case fieldWrite:
			b.PushWriteBuffer(fv.Interface().(WriteBuffer).Data)
		case fieldReadWrite:
			b.PushReadWriteBuffer(fv.Interface().(ReadWriteBuffer).Data)
		case fieldStatic:
			sb := fv.Interface().(StaticBuffer)
			b.PushStaticBuffer(sb.ID, sb.Data)
		case fieldHandles:
			hl := fv.Interface().(HandleList)
			if hl.Move {
				b.PushMoveHandles(hl.Handles...)
			} else {
				b.PushHandles(hl.Handles...)
			}
		case fieldProcessID:
			b.PushProcessID()
		}
	}
}

func (s *shape) decode(p *Parser, v reflect.Value) error {
	for _, f := range s.fields {
		fv := v.Field(f.index)
		switch f.kind {
		case fieldWord:
			setWord(fv, p.Pop())
		case fieldDouble:
			w := p.PopU64()
			if fv.Kind() == reflect.Int64 {
				fv.SetInt(int64(w))
			} else {
				fv.SetUint(w)
			}
		case fieldFlat:
			if err := p.PopStruct(fv.Addr().Interface()); err != nil {
				return err
			}
		case fieldRead:
			view, err := p.PopReadBuffer()
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(ReadBuffer{View: view}))
		case fieldWrite:
			view, err := p.PopWriteBuffer()
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(WriteBuffer{View: view}))
		case fieldReadWrite:
			view, err := p.PopReadWriteBuffer()
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(ReadWriteBuffer{View: view}))
		case fieldStatic:
			d, err := p.PopDescriptor()
			if err != nil {
				return err
			}
			if d.Kind != KindStaticBuffer {
				return p.fail(fmt.Errorf("%s.%s: got %s descriptor: %w", s.typ, f.name, d.Kind, result.HostInvalidDescriptor))
			}
			data, _, err := p.buf.space.resolve(d.Addr, d.Size, RightsRead)
			if err != nil {
				return p.fail(err)
			}
			fv.Set(reflect.ValueOf(StaticBuffer{ID: d.StaticID, View: View{data: data}}))
		case fieldHandles:
			d, err := p.expect(KindHandleList)
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(HandleList{Handles: d.Handles, Move: d.Move}))
		case fieldProcessID:
			pid, err := p.PopProcessID()
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(ProcessID{PID: pid}))
		}
	}
	if p.err != nil {
		return p.err
	}
	if p.Remaining() != 0 {
		return p.fail(fmt.Errorf("%s: %d trailing words: %w", s.typ, p.Remaining(), result.HostInvalidSize))
	}
	return nil
}

func wordOf(v reflect.Value) uint32 {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return uint32(int32(v.Int()))
	default:
		return uint32(v.Uint())
	}
}

func setWord(v reflect.Value, w uint32) {
	switch v.Kind() {
	case reflect.Bool:
		v.SetBool(w != 0)
	case reflect.Int8, reflect.Int16, reflect.Int32:
		v.SetInt(int64(int32(w)))
	default:
		v.SetUint(uint64(w))
	}
}

// Method declares one command: its id and the shapes of its request and
// response. Fields of Req and Resp are encoded in declaration order; all
// plain fields must precede descriptor fields. A response always starts with
// a result word ahead of the Resp fields.
type Method[Req, Resp any] struct {
	ID   uint16
	Name string

	req  *shape
	resp *shape
}

// NewMethod validates the request and response shapes. It panics with a
// *ProgrammingError if either declares a plain field after a descriptor or
// uses an unsupported field type.
func NewMethod[Req, Resp any](id uint16, name string) Method[Req, Resp] {
	op := fmt.Sprintf("NewMethod(%s)", name)
	return Method[Req, Resp]{
		ID:   id,
		Name: name,
		req:  shapeOf(op, reflect.TypeFor[Req]()),
		resp: shapeOf(op, reflect.TypeFor[Resp]()),
	}
}

// RequestNormalWords returns the number of plain request words.
func (m Method[Req, Resp]) RequestNormalWords() int {
	return m.req.normal
}

// WriteRequest builds req into buf.
func (m Method[Req, Resp]) WriteRequest(buf *Buffer, req Req) error {
	return buf.Build(m.ID, func(b *Builder) {
		m.req.encode(b, reflect.ValueOf(req))
	})
}

// ReadRequest decodes the request in buf. A header whose id or plain word
// count does not match yields result.InvalidCommand.
func (m Method[Req, Resp]) ReadRequest(buf *Buffer) (Req, error) {
	var req Req
	err := buf.Parse(func(p *Parser) error {
		h := p.Header()
		if h.CommandID() != m.ID || h.Normal() != m.req.normal {
			return p.fail(fmt.Errorf("%s: header %s: %w", m.Name, h, result.InvalidCommand))
		}
		return m.req.decode(p, reflect.ValueOf(&req).Elem())
	})
	return req, err
}

// WriteResponse builds a success reply carrying resp.
func (m Method[Req, Resp]) WriteResponse(buf *Buffer, resp Resp) error {
	return buf.Build(m.ID, func(b *Builder) {
		b.PushResult(result.Success)
		m.resp.encode(b, reflect.ValueOf(resp))
	})
}

// ReadResponse decodes a reply. An error result in the first word is
// returned as is, whatever the rest of the message looks like.
func (m Method[Req, Resp]) ReadResponse(buf *Buffer) (Resp, error) {
	var resp Resp
	err := buf.Parse(func(p *Parser) error {
		if p.Header().Normal() < 1 {
			return p.fail(fmt.Errorf("%s: reply %s has no result: %w", m.Name, p.Header(), result.HostInvalidSize))
		}
		if err := p.PopResult().Err(); err != nil {
			return err
		}
		h := p.Header()
		if h.CommandID() != m.ID || h.Normal() != 1+m.resp.normal {
			return p.fail(fmt.Errorf("%s: reply header %s: %w", m.Name, h, result.HostInvalidValue))
		}
		return m.resp.decode(p, reflect.ValueOf(&resp).Elem())
	})
	return resp, err
}

// WriteErrorReply builds a reply that carries only code.
func WriteErrorReply(buf *Buffer, id uint16, code result.Code) error {
	return buf.Build(id, func(b *Builder) {
		b.PushResult(code)
	})
}

// WriteInvalidCommand builds the fixed reply for an unknown command.
func WriteInvalidCommand(buf *Buffer) error {
	return WriteErrorReply(buf, 0, result.InvalidCommand)
}
