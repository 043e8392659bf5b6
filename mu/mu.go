// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package mu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"golang.org/x/xerrors"
)

var (
	customMarshallerType   reflect.Type = reflect.TypeOf((*CustomMarshaller)(nil)).Elem()
	customUnmarshallerType reflect.Type = reflect.TypeOf((*CustomUnmarshaller)(nil)).Elem()
	unionType              reflect.Type = reflect.TypeOf((*Union)(nil)).Elem()
	rawBytesType           reflect.Type = reflect.TypeOf(RawBytes(nil))
)

// InvalidSelectorError may be returned as a wrapped error from UnmarshalFromBytes or UnmarshalFromReader when a union
// type is being unmarshalled and the value of the selector field doesn't select a union member.
type InvalidSelectorError struct {
	Selector reflect.Value
}

func (e *InvalidSelectorError) Error() string {
	return fmt.Sprintf("invalid selector value: %v", e.Selector)
}

// CustomMarshaller is implemented by types that marshal themselves.
type CustomMarshaller interface {
	Marshal(w io.Writer) error
}

// CustomUnmarshaller is implemented by types that unmarshal themselves. Implementations must have a pointer receiver.
type CustomUnmarshaller interface {
	Unmarshal(r Reader) error
}

// Reader is an io.Reader that knows how many bytes are left to read.
type Reader interface {
	io.Reader
	Len() int
}

type empty struct{}

// NilUnionValue is returned from Union.Select to indicate that the union has no value for the supplied selector.
var NilUnionValue interface{} = &empty{}

// RawBytes is a byte slice that is marshalled and unmarshalled without a size field. During unmarshalling, the slice
// must already have the expected length.
type RawBytes []byte

// Union is implemented by structures that correspond to TPMU prefixed types. A union must be referenced from a field of an
// enclosing structure that has the `tpm2:"selector:<field_name>"` tag.
type Union interface {
	// Select maps the selector value to a pointer to the member that should be marshalled or unmarshalled. It must be
	// implemented with a pointer receiver. It returns NilUnionValue if there is no member for this selector, and nil if
	// the selector is invalid.
	Select(selector reflect.Value) interface{}
}

// Error is returned from any function in this package to provide context of where an error occurred.
type Error struct {
	// Index indicates the argument on which this error occurred.
	Index int

	// Op is either "marshal" or "unmarshal".
	Op string

	// Path is the location of the value on which the error occurred, relative to the argument.
	Path string

	err error
}

func (e *Error) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "cannot %s argument %d", e.Op, e.Index)
	if e.Path != "" {
		fmt.Fprintf(&builder, " at %s", e.Path)
	}
	fmt.Fprintf(&builder, ": %v", e.err)
	return builder.String()
}

func (e *Error) Unwrap() error {
	return e.err
}

type fieldOptions struct {
	selector string
	sized    bool
	raw      bool
}

func parseFieldOptions(f reflect.StructField) (out fieldOptions) {
	for _, part := range strings.Split(f.Tag.Get("tpm2"), ",") {
		switch {
		case strings.HasPrefix(part, "selector:"):
			out.selector = strings.TrimPrefix(part, "selector:")
		case part == "sized":
			out.sized = true
		case part == "raw":
			out.raw = true
		}
	}
	return out
}

type frame struct {
	container reflect.Value
	name      string
}

// state tracks where in a value the codec currently is, so that union selectors can be resolved from the
// enclosing structure and errors can describe their location.
type state struct {
	op    string
	index int
	stack []frame
	opts  fieldOptions
}

func (s *state) path() string {
	var parts []string
	for _, f := range s.stack {
		parts = append(parts, f.name)
	}
	return strings.Join(parts, ".")
}

func (s *state) wrap(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	var e *Error
	if xerrors.As(err, &e) {
		return err
	}
	return &Error{Index: s.index, Op: s.op, Path: s.path(), err: err}
}

func (s *state) enterField(v reflect.Value, i int) (reflect.Value, func()) {
	opts := s.opts
	s.opts = parseFieldOptions(v.Type().Field(i))
	s.stack = append(s.stack, frame{container: v, name: v.Type().Field(i).Name})
	return v.Field(i), func() {
		s.stack = s.stack[:len(s.stack)-1]
		s.opts = opts
	}
}

func (s *state) enterElem(v reflect.Value, i int) (reflect.Value, func()) {
	opts := s.opts
	s.opts = fieldOptions{}
	s.stack = append(s.stack, frame{container: v, name: fmt.Sprintf("[%d]", i)})
	return v.Index(i), func() {
		s.stack = s.stack[:len(s.stack)-1]
		s.opts = opts
	}
}

// selectUnionMember returns the member of the union u selected by the enclosing structure, or an invalid value if
// there is nothing to marshal.
func (s *state) selectUnionMember(u reflect.Value) (reflect.Value, func(), error) {
	if len(s.stack) == 0 {
		panic(fmt.Sprintf("union type %s is not inside a structure", u.Type()))
	}
	if s.opts.selector == "" {
		panic(fmt.Sprintf("no selector for union type %s at %s", u.Type(), s.path()))
	}
	selector := s.stack[len(s.stack)-1].container.FieldByName(s.opts.selector)
	if !selector.IsValid() {
		panic(fmt.Sprintf("selector %s for union type %s is not a field of the enclosing structure", s.opts.selector, u.Type()))
	}

	p := u.Addr().Interface().(Union).Select(selector)
	switch {
	case p == nil:
		return reflect.Value{}, nil, &InvalidSelectorError{selector}
	case p == NilUnionValue:
		return reflect.Value{}, nil, nil
	}
	member := reflect.ValueOf(p).Elem()

	name := ""
	for i := 0; i < u.NumField(); i++ {
		if u.Field(i).Addr().Pointer() == member.Addr().Pointer() && u.Field(i).Type() == member.Type() {
			name = u.Type().Field(i).Name
			break
		}
	}
	if name == "" {
		panic(fmt.Sprintf("Select for union type %s returned a pointer to something that isn't a member", u.Type()))
	}

	opts := s.opts
	s.opts = fieldOptions{}
	s.stack = append(s.stack, frame{container: u, name: name})
	return member, func() {
		s.stack = s.stack[:len(s.stack)-1]
		s.opts = opts
	}, nil
}

func isPrimitive(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

type encoder struct {
	*state
	w io.Writer
	n int
}

func (e *encoder) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	e.n += n
	return n, err
}

func (e *encoder) encodeSized(v reflect.Value) error {
	opts := e.opts
	e.opts.sized = false
	defer func() { e.opts = opts }()

	if v.Kind() == reflect.Ptr && v.IsNil() {
		return e.state.wrapIf(binary.Write(e, binary.BigEndian, uint16(0)))
	}

	tmp := new(bytes.Buffer)
	inner := &encoder{state: e.state, w: tmp}
	if v.Kind() == reflect.Slice {
		if _, err := tmp.Write(v.Bytes()); err != nil {
			return e.wrap(err)
		}
	} else if err := inner.encode(v); err != nil {
		return err
	}
	if tmp.Len() > math.MaxUint16 {
		return e.wrap(errors.New("sized value is larger than 2^16-1 bytes"))
	}
	if err := binary.Write(e, binary.BigEndian, uint16(tmp.Len())); err != nil {
		return e.wrap(err)
	}
	_, err := tmp.WriteTo(e)
	return e.wrapIf(err)
}

func (e *encoder) encodeRaw(v reflect.Value) error {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		_, err := e.Write(v.Bytes())
		return e.wrapIf(err)
	}
	for i := 0; i < v.Len(); i++ {
		elem, exit := e.enterElem(v, i)
		err := e.encode(elem)
		exit()
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeList(v reflect.Value) error {
	if int64(v.Len()) > math.MaxUint32 {
		return e.wrap(errors.New("list is longer than 2^32-1 elements"))
	}
	if err := binary.Write(e, binary.BigEndian, uint32(v.Len())); err != nil {
		return e.wrap(err)
	}
	return e.encodeRaw(v)
}

func (e *encoder) encodeStruct(v reflect.Value) error {
	if reflect.PtrTo(v.Type()).Implements(unionType) {
		member, exit, _ := e.selectUnionMember(v)
		if !member.IsValid() {
			return nil
		}
		defer exit()
		return e.encode(member)
	}

	for i := 0; i < v.NumField(); i++ {
		f, exit := e.enterField(v, i)
		err := e.encode(f)
		exit()
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encode(v reflect.Value) error {
	switch {
	case e.opts.sized:
		return e.encodeSized(v)
	case e.opts.raw && v.Kind() == reflect.Slice:
		return e.encodeRaw(v)
	}

	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v = reflect.New(v.Type().Elem())
		}
		v = v.Elem()
	}

	if v.CanAddr() && v.Addr().Type().Implements(customMarshallerType) {
		return e.wrapIf(v.Addr().Interface().(CustomMarshaller).Marshal(e))
	}
	if v.Type().Implements(customMarshallerType) {
		return e.wrapIf(v.Interface().(CustomMarshaller).Marshal(e))
	}

	switch {
	case isPrimitive(v.Kind()):
		return e.wrapIf(binary.Write(e, binary.BigEndian, v.Interface()))
	case v.Kind() == reflect.Slice && v.Type() == rawBytesType:
		return e.encodeRaw(v)
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8:
		return e.encodeSized(v)
	case v.Kind() == reflect.Slice:
		return e.encodeList(v)
	case v.Kind() == reflect.Struct:
		return e.encodeStruct(v)
	}

	panic(fmt.Sprintf("cannot marshal unsupported type %s", v.Type()))
}

func (s *state) wrapIf(err error) error {
	if err == nil {
		return nil
	}
	return s.wrap(err)
}

type decoder struct {
	*state
	r Reader
}

type limitedReader struct {
	r io.Reader
	n int
}

func (r *limitedReader) Read(p []byte) (int, error) {
	if r.n <= 0 {
		return 0, io.EOF
	}
	if len(p) > r.n {
		p = p[:r.n]
	}
	n, err := r.r.Read(p)
	r.n -= n
	return n, err
}

func (r *limitedReader) Len() int {
	return r.n
}

func (d *decoder) decodeSized(v reflect.Value) error {
	opts := d.opts
	d.opts.sized = false
	defer func() { d.opts = opts }()

	var size uint16
	if err := binary.Read(d.r, binary.BigEndian, &size); err != nil {
		return d.wrap(err)
	}
	switch {
	case int(size) > d.r.Len():
		return d.wrap(errors.New("sized value has a size larger than the remaining bytes"))
	case size == 0 && v.Kind() == reflect.Ptr:
		v.Set(reflect.Zero(v.Type()))
		return nil
	case v.Kind() == reflect.Slice:
		b := make([]byte, size)
		if _, err := io.ReadFull(d.r, b); err != nil {
			return d.wrap(err)
		}
		v.Set(reflect.ValueOf(b).Convert(v.Type()))
		return nil
	}

	inner := &decoder{state: d.state, r: &limitedReader{r: d.r, n: int(size)}}
	if err := inner.decode(v); err != nil {
		return err
	}
	if inner.r.Len() > 0 {
		return d.wrap(fmt.Errorf("%d trailing bytes in sized value", inner.r.Len()))
	}
	return nil
}

func (d *decoder) decodeRaw(v reflect.Value) error {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		_, err := io.ReadFull(d.r, v.Bytes())
		return d.wrapIf(err)
	}
	for i := 0; i < v.Len(); i++ {
		elem, exit := d.enterElem(v, i)
		err := d.decode(elem)
		exit()
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) decodeList(v reflect.Value) error {
	var n uint32
	if err := binary.Read(d.r, binary.BigEndian, &n); err != nil {
		return d.wrap(err)
	}
	if int64(n) > int64(d.r.Len()) {
		return d.wrap(errors.New("list length is larger than the remaining bytes"))
	}
	l := reflect.MakeSlice(v.Type(), int(n), int(n))
	if err := d.decodeRaw(l); err != nil {
		return err
	}
	v.Set(l)
	return nil
}

func (d *decoder) decodeStruct(v reflect.Value) error {
	if reflect.PtrTo(v.Type()).Implements(unionType) {
		member, exit, err := d.selectUnionMember(v)
		if err != nil {
			return d.wrap(err)
		}
		if !member.IsValid() {
			return nil
		}
		defer exit()
		return d.decode(member)
	}

	for i := 0; i < v.NumField(); i++ {
		f, exit := d.enterField(v, i)
		err := d.decode(f)
		exit()
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) decode(v reflect.Value) error {
	switch {
	case d.opts.sized:
		return d.decodeSized(v)
	case d.opts.raw && v.Kind() == reflect.Slice:
		return d.decodeRaw(v)
	}

	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}

	if reflect.PtrTo(v.Type()).Implements(customUnmarshallerType) {
		return d.wrapIf(v.Addr().Interface().(CustomUnmarshaller).Unmarshal(d.r))
	}

	switch {
	case isPrimitive(v.Kind()):
		return d.wrapIf(binary.Read(d.r, binary.BigEndian, v.Addr().Interface()))
	case v.Kind() == reflect.Slice && v.Type() == rawBytesType:
		return d.decodeRaw(v)
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8:
		return d.decodeSized(v)
	case v.Kind() == reflect.Slice:
		return d.decodeList(v)
	case v.Kind() == reflect.Struct:
		return d.decodeStruct(v)
	}

	panic(fmt.Sprintf("cannot unmarshal unsupported type %s", v.Type()))
}

// MarshalToWriter marshals vals to w in the TPM wire format. A nil pointer is marshalled as the zero value of the type it
// points to, unless it is a sized structure in which case it is marshalled as a zero size.
//
// The number of bytes written to w is returned, along with an error if one occurred.
func MarshalToWriter(w io.Writer, vals ...interface{}) (int, error) {
	e := &encoder{state: &state{op: "marshal"}, w: w}
	for i, v := range vals {
		e.index = i
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr {
			// Unions are selected through pointers, so make sure that everything is addressable.
			addressable := reflect.New(rv.Type()).Elem()
			addressable.Set(rv)
			rv = addressable
		}
		if err := e.encode(rv); err != nil {
			return e.n, err
		}
	}
	return e.n, nil
}

// MarshalToBytes marshals vals to the TPM wire format and returns the result.
func MarshalToBytes(vals ...interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := MarshalToWriter(buf, vals...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustMarshalToBytes is the same as MarshalToBytes, except that it panics if it encounters an error.
func MustMarshalToBytes(vals ...interface{}) []byte {
	b, err := MarshalToBytes(vals...)
	if err != nil {
		panic(err)
	}
	return b
}

// UnmarshalFromReader unmarshals data in the TPM wire format from r to vals, which must be pointers to the destination values.
// If r does not implement Len, the amount of available data is treated as unbounded.
//
// The number of bytes read from r is returned, along with an error if one occurred. On error, vals may be partially
// unmarshalled.
func UnmarshalFromReader(r io.Reader, vals ...interface{}) (int, error) {
	for _, val := range vals {
		v := reflect.ValueOf(val)
		if v.Kind() != reflect.Ptr || v.IsNil() {
			panic(fmt.Sprintf("cannot unmarshal to non-pointer or nil pointer type %T", val))
		}
	}

	n := math.MaxInt32
	if sr, ok := r.(Reader); ok {
		n = sr.Len()
	}
	lr := &limitedReader{r: r, n: n}
	d := &decoder{state: &state{op: "unmarshal"}, r: lr}
	for i, val := range vals {
		d.index = i
		if err := d.decode(reflect.ValueOf(val).Elem()); err != nil {
			return n - lr.n, err
		}
	}
	return n - lr.n, nil
}

// UnmarshalFromBytes unmarshals data in the TPM wire format from b to vals, which must be pointers to the destination values.
//
// The number of bytes consumed from b is returned, along with an error if one occurred.
func UnmarshalFromBytes(b []byte, vals ...interface{}) (int, error) {
	return UnmarshalFromReader(bytes.NewReader(b), vals...)
}
