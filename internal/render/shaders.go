package render

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/irfansharif/scenery/internal/geom"
)

// Vertex shader shared by every program. Places the vertex with the model,
// view and projection matrices and forwards the world-space normal.
const vertexShaderSource = `
#version 330 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;

uniform mat4 uModel;
uniform mat4 uView;
uniform mat4 uProjection;

out vec3 vNormal;

void main() {
    gl_Position = uProjection * uView * uModel * vec4(aPos, 1.0);
    vNormal = mat3(uModel) * aNormal;
}
` + "\x00"

// Fragment shader for regular meshes: a fixed directional light over the mesh
// colour. Alpha passes through for the transparent pass.
const litFragmentShaderSource = `
#version 330 core
in vec3 vNormal;
out vec4 FragColor;

uniform vec4 uColour;

void main() {
    vec3 light = normalize(vec3(0.4, 0.8, 0.6));
    float diffuse = max(dot(normalize(vNormal), light), 0.0);
    FragColor = vec4(uColour.rgb * (0.35 + 0.65 * diffuse), uColour.a);
}
` + "\x00"

// Fragment shader for selected meshes: the lit colour mixed towards the
// highlight colour.
const highlightFragmentShaderSource = `
#version 330 core
in vec3 vNormal;
out vec4 FragColor;

uniform vec4 uColour;
uniform vec4 uHighlight;

void main() {
    vec3 light = normalize(vec3(0.4, 0.8, 0.6));
    float diffuse = max(dot(normalize(vNormal), light), 0.0);
    vec3 lit = uColour.rgb * (0.35 + 0.65 * diffuse);
    FragColor = vec4(mix(lit, uHighlight.rgb, 0.6), 1.0);
}
` + "\x00"

// FlatFragmentShaderSource draws the mesh colour unlit. It is the program
// bound to the viewer's shader group.
const FlatFragmentShaderSource = `
#version 330 core
in vec3 vNormal;
out vec4 FragColor;

uniform vec4 uColour;

void main() {
    FragColor = uColour;
}
` + "\x00"

// program is a linked shader program and its uniform locations. Missing
// uniforms have location -1, which GL ignores.
type program struct {
	id          uint32
	uModel      int32
	uView       int32
	uProjection int32
	uColour     int32
	uHighlight  int32
}

// newProgram compiles the shared vertex shader with fragmentSource and links
// them.
func newProgram(fragmentSource string) (*program, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(fragmentShader)

	id := gl.CreateProgram()
	gl.AttachShader(id, vertexShader)
	gl.AttachShader(id, fragmentShader)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(logText))
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("shader linking failed: %s", logText)
	}

	uniform := func(name string) int32 {
		return gl.GetUniformLocation(id, gl.Str(name+"\x00"))
	}
	return &program{
		id:          id,
		uModel:      uniform("uModel"),
		uView:       uniform("uView"),
		uProjection: uniform("uProjection"),
		uColour:     uniform("uColour"),
		uHighlight:  uniform("uHighlight"),
	}, nil
}

// compileShader compiles a single shader from source.
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("shader compilation failed: %s", logText)
	}
	return shader, nil
}

// use activates the program and loads the camera matrices.
func (p *program) use(view, projection geom.Mat4) {
	gl.UseProgram(p.id)
	gl.UniformMatrix4fv(p.uView, 1, false, &view[0])
	gl.UniformMatrix4fv(p.uProjection, 1, false, &projection[0])
}

func (p *program) delete() {
	gl.DeleteProgram(p.id)
}
