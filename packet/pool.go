package packet

import (
	"bytes"
	"sync"
)

// 每个报文的 Pack/Unpack 都要一个临时缓冲区，池化避免高频分配。
var buffers = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func GetBuffer() *bytes.Buffer {
	return buffers.Get().(*bytes.Buffer)
}

func PutBuffer(buf *bytes.Buffer) {
	buf.Reset()
	buffers.Put(buf)
}
