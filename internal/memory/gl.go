package memory

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// GLBackend stores batches in OpenGL vertex buffers. It requires a current
// context.
type GLBackend struct{}

var _ Backend = GLBackend{}

// CreateBuffer sets up a VAO+VBO pair with the interleaved position/normal
// layout.
func (GLBackend) CreateBuffer(vertexCapacity int) (Buffer, error) {
	var b Buffer
	gl.GenVertexArrays(1, &b.VAO)
	gl.GenBuffers(1, &b.VBO)

	gl.BindVertexArray(b.VAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.VBO)
	gl.BufferData(gl.ARRAY_BUFFER, vertexCapacity*bytesPerVertex, nil, gl.DYNAMIC_DRAW)

	// - Attribute 0: position (vec3)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, bytesPerVertex, gl.PtrOffset(0))
	// - Attribute 1: normal (vec3)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, bytesPerVertex, gl.PtrOffset(12))

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		GLBackend{}.Release(b)
		return Buffer{}, fmt.Errorf("allocating %d vertices: GL error 0x%x", vertexCapacity, code)
	}
	return b, nil
}

// Upload writes vertices at the given vertex offset.
func (GLBackend) Upload(b Buffer, vertexOffset int, vertices []float32) error {
	gl.BindBuffer(gl.ARRAY_BUFFER, b.VBO)
	gl.BufferSubData(gl.ARRAY_BUFFER, vertexOffset*bytesPerVertex, len(vertices)*4, gl.Ptr(vertices))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("uploading %d floats at vertex %d: GL error 0x%x", len(vertices), vertexOffset, code)
	}
	return nil
}

// Copy moves vertex data between buffers with glCopyBufferSubData.
func (GLBackend) Copy(src Buffer, srcOffset int, dst Buffer, dstOffset, count int) error {
	gl.BindBuffer(gl.COPY_READ_BUFFER, src.VBO)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, dst.VBO)
	gl.CopyBufferSubData(gl.COPY_READ_BUFFER, gl.COPY_WRITE_BUFFER,
		srcOffset*bytesPerVertex, dstOffset*bytesPerVertex, count*bytesPerVertex)
	gl.BindBuffer(gl.COPY_READ_BUFFER, 0)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("copying %d vertices: GL error 0x%x", count, code)
	}
	return nil
}

// Release deletes the VAO and VBO.
func (GLBackend) Release(b Buffer) {
	if b.VAO != 0 {
		gl.DeleteVertexArrays(1, &b.VAO)
	}
	if b.VBO != 0 {
		gl.DeleteBuffers(1, &b.VBO)
	}
}
