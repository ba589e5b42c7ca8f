package sandbox

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // kept for CryptoJS.RIPEMD160 parity
	"golang.org/x/crypto/sha3"
)

const wordArrayKey = "__hex"
const encoderKey = "__encoding"

var hashes = map[string]func() hash.Hash{
	"MD5":       md5.New,
	"SHA1":      sha1.New,
	"SHA224":    sha256.New224,
	"SHA256":    sha256.New,
	"SHA384":    sha512.New384,
	"SHA512":    sha512.New,
	"SHA3":      sha3.NewLegacyKeccak512,
	"RIPEMD160": ripemd160.New,
}

// cryptoJS builds a CryptoJS-compatible subset: digests, HMACs and the
// Hex/Base64/Utf8/Latin1 encoders. Digests return word arrays whose
// toString defaults to hex.
func (x *execution) cryptoJS() (*goja.Object, error) {
	vm := x.vm
	c := vm.NewObject()

	for name, h := range hashes {
		if err := c.Set(name, func(msg goja.Value) *goja.Object {
			d := h()
			d.Write(x.bytesOf(msg))
			return x.wordArray(d.Sum(nil))
		}); err != nil {
			return nil, err
		}
		if err := c.Set("Hmac"+name, func(msg, key goja.Value) *goja.Object {
			m := hmac.New(h, x.bytesOf(key))
			m.Write(x.bytesOf(msg))
			return x.wordArray(m.Sum(nil))
		}); err != nil {
			return nil, err
		}
	}

	enc := vm.NewObject()
	for _, name := range []string{"Hex", "Base64", "Utf8", "Latin1"} {
		encoder := vm.NewObject()
		_ = encoder.Set(encoderKey, name)
		_ = encoder.Set("stringify", func(wa goja.Value) string {
			return encode(x.bytesOf(wa), name)
		})
		_ = encoder.Set("parse", func(s string) goja.Value {
			b, err := decode(s, name)
			if err != nil {
				panic(vm.NewTypeError("invalid %s input: %v", name, err))
			}
			return x.wordArray(b)
		})
		if err := enc.Set(name, encoder); err != nil {
			return nil, err
		}
	}
	if err := c.Set("enc", enc); err != nil {
		return nil, err
	}
	return c, nil
}

// wordArray wraps digest bytes the way CryptoJS exposes them.
func (x *execution) wordArray(b []byte) *goja.Object {
	wa := x.vm.NewObject()
	_ = wa.DefineDataProperty(wordArrayKey, x.vm.ToValue(hex.EncodeToString(b)), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
	_ = wa.Set("sigBytes", len(b))
	_ = wa.Set("toString", func(call goja.FunctionCall) goja.Value {
		name := "Hex"
		if obj, ok := call.Argument(0).(*goja.Object); ok {
			if v := obj.Get(encoderKey); v != nil && !goja.IsUndefined(v) {
				name = v.String()
			}
		}
		return x.vm.ToValue(encode(b, name))
	})
	return wa
}

// bytesOf reads a word array's bytes, or the UTF-8 bytes of any other value.
func (x *execution) bytesOf(v goja.Value) []byte {
	if obj, ok := v.(*goja.Object); ok {
		if h := obj.Get(wordArrayKey); h != nil && !goja.IsUndefined(h) {
			if b, err := hex.DecodeString(h.String()); err == nil {
				return b
			}
		}
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return []byte(v.String())
}

func encode(b []byte, name string) string {
	switch name {
	case "Base64":
		return base64.StdEncoding.EncodeToString(b)
	case "Utf8":
		return string(b)
	case "Latin1":
		return latin1String(b)
	default:
		return hex.EncodeToString(b)
	}
}

func decode(s, name string) ([]byte, error) {
	switch name {
	case "Base64":
		return base64.StdEncoding.DecodeString(s)
	case "Utf8":
		return []byte(s), nil
	case "Latin1":
		return latin1Bytes(s), nil
	default:
		return hex.DecodeString(s)
	}
}

func latin1String(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

func latin1Bytes(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}

// bindEncoding installs btoa and atob with browser semantics.
func (x *execution) bindEncoding() error {
	vm := x.vm
	if err := vm.Set("btoa", func(s string) string {
		for _, r := range s {
			if r > 0xff {
				panic(vm.NewTypeError("btoa: string contains characters outside of the Latin1 range"))
			}
		}
		return base64.StdEncoding.EncodeToString(latin1Bytes(s))
	}); err != nil {
		return err
	}
	return vm.Set("atob", func(s string) string {
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			panic(vm.NewTypeError("atob: invalid base64 input"))
		}
		return latin1String(b)
	})
}
