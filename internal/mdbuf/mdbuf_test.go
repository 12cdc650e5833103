package mdbuf

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	type op struct {
		add        bool
		start, end int64
	}
	for _, tc := range []struct {
		name   string
		ops    []op
		expect string
	}{
		{"empty", nil, "[]"},
		{"add one", []op{{true, 2, 5}}, "[@2:5]"},
		{"add empty", []op{{true, 5, 5}}, "[]"},
		{"add disjoint", []op{{true, 8, 9}, {true, 2, 5}}, "[@2:5 @8:9]"},
		{"add touching", []op{{true, 2, 5}, {true, 5, 8}}, "[@2:8]"},
		{"add spanning", []op{{true, 2, 3}, {true, 5, 6}, {true, 8, 9}, {true, 1, 10}}, "[@1:10]"},
		{"add overlap", []op{{true, 2, 5}, {true, 8, 12}, {true, 4, 9}}, "[@2:12]"},
		{"sub middle", []op{{true, 0, 10}, {false, 3, 6}}, "[@0:3 @6:10]"},
		{"sub head", []op{{true, 0, 10}, {false, 0, 4}}, "[@4:10]"},
		{"sub all", []op{{true, 2, 4}, {true, 6, 8}, {false, 0, 10}}, "[]"},
		{"sub across", []op{{true, 0, 4}, {true, 6, 10}, {false, 2, 8}}, "[@0:2 @8:10]"},
		{"sub outside", []op{{true, 2, 4}, {false, 4, 6}}, "[@2:4]"},
		{"nested regions", []op{{true, 0, 20}, {false, 5, 15}, {true, 8, 10}}, "[@0:5 @8:10 @15:20]"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var m Mask
			for _, o := range tc.ops {
				if o.add {
					m.Add(o.start, o.end)
				} else {
					m.Sub(o.start, o.end)
				}
			}
			assert.Equal(t, tc.expect, fmt.Sprint(m))
		})
	}
}

func TestMask_AppendMasked(t *testing.T) {
	var buf Buffer
	buf.WriteString("hello brave new world")
	var m Mask
	m.Add(0, 21)
	m.Sub(5, 11)
	m.Sub(15, 16)
	assert.Equal(t, "hello newworld", string(m.AppendMasked(nil, &buf, 0, 21)))
	assert.Equal(t, "lo ne", string(m.AppendMasked(nil, &buf, 3, 14)))
}

func TestBuffer(t *testing.T) {
	var buf Buffer
	buf.WriteString("abcdef")
	buf.Discard(2)
	assert.Equal(t, int64(2), buf.Base())
	assert.Equal(t, int64(6), buf.Offset())
	assert.Equal(t, "cd", string(buf.Slice(0, 4)))
	buf.WriteString("gh")
	buf.Truncate(7)
	assert.Equal(t, "cdefg", string(buf.Slice(0, 100)))
	assert.Panics(t, func() { buf.Truncate(1) })
	assert.Equal(t, "@2:7 cdefg", fmt.Sprintf("%+v", &buf))
}

func TestTrimWriter(t *testing.T) {
	for _, chunks := range [][]string{
		{"\n\n  a b\n\nc  \n"},
		{"\n", "\n  a", " b\n", "\nc", "  ", "\n"},
		{"", "\n\n  a b\n\n", "", "c  \n", ""},
	} {
		var out bytes.Buffer
		tw := TrimWriter{To: &out}
		for _, chunk := range chunks {
			n, err := tw.Write([]byte(chunk))
			assert.NoError(t, err)
			assert.Equal(t, len(chunk), n)
		}
		assert.Equal(t, "a b\n\nc", out.String(), "chunks %q", chunks)
	}
}

func TestPrefixWriter(t *testing.T) {
	var out strings.Builder
	pw := PrefixWriter("> ", &out)
	write := func(s string) { pw.Write([]byte(s)) }
	write("one\ntw")
	write("o\n")
	write("three")
	assert.NoError(t, pw.Close())
	assert.Equal(t, "> one\n> two\n> three", out.String())
}

func TestWriteBuffer_FlushSize(t *testing.T) {
	var out strings.Builder
	buf := WriteBuffer{To: &out, FlushPolicy: FlushSize(4)}
	buf.WriteString("abc")
	assert.NoError(t, buf.MaybeFlush())
	assert.Equal(t, "", out.String())
	buf.WriteString("de")
	assert.NoError(t, buf.MaybeFlush())
	assert.Equal(t, "abcde", out.String())
	buf.WriteString("f")
	assert.NoError(t, buf.Flush())
	assert.Equal(t, "abcdef", out.String())
}
