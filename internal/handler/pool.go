package handler

import (
	"bytes"
	"sync"
)

// bufferPool reuses encode buffers across JSON responses. Link responses
// are small, so 512 bytes covers nearly all of them without regrowth.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufferPool.Put(buf)
}
