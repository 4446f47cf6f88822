package competency

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

var errNotAnObject = errors.New("expected a JSON object")

// keyed values learn the mapping key they are stored under when decoded.
type keyed[V any] interface {
	withKey(key string) V
}

// Ordered is a string-keyed mapping that remembers insertion order.
// JSON objects decode into it in document order.
type Ordered[V any] struct {
	keys   []string
	values map[string]V
}

// Set adds or replaces key. A replaced key keeps its original position.
func (o *Ordered[V]) Set(key string, val V) {
	if o.values == nil {
		o.values = make(map[string]V)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = val
}

func (o Ordered[V]) Get(key string) (V, bool) {
	val, ok := o.values[key]
	return val, ok
}

func (o Ordered[V]) Len() int { return len(o.keys) }

// Keys returns a copy of the keys in insertion order.
func (o Ordered[V]) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Each calls fn for every entry in insertion order.
func (o Ordered[V]) Each(fn func(key string, val V)) {
	for _, key := range o.keys {
		fn(key, o.values[key])
	}
}

func (o Ordered[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(o.values[key])
		if err != nil {
			return nil, errors.Wrapf(err, "marshaling %q", key)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Ordered[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil { // null
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotAnObject
	}

	var res Ordered[V]
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errNotAnObject
		}
		var val V
		if err = dec.Decode(&val); err != nil {
			return errors.Wrapf(err, "decoding %q", key)
		}
		if k, ok := any(val).(keyed[V]); ok {
			val = k.withKey(key)
		}
		res.Set(key, val)
	}
	if _, err = dec.Token(); err != nil { // closing '}'
		return err
	}
	*o = res
	return nil
}
