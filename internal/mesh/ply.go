// Package mesh implements the mesh preprocessor: an ASCII PLY loader,
// per-vertex normal accumulation, and a median-axis triangle BVH
// builder that packs itself into a resource.Manager's Group/AABB/
// Vertex/Triangle arena.
package mesh

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Load parses an ASCII PLY file in the dialect this preprocessor
// accepts: a vertex element with exactly x/y/z plus any number of
// extra (ignored) float properties, and a face element whose list
// property is `uchar int|uint vertex_indices`, followed by N vertex
// lines and M triangle lines ("3 i0 i1 i2").
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024), 1<<20)

	vertexCount, faceCount, err := parseHeader(scanner)
	if err != nil {
		return nil, fmt.Errorf("mesh: %s: %w", path, err)
	}

	vertices := make([]ModelVertex, vertexCount)
	for i := 0; i < vertexCount; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("mesh: %s: truncated vertex data at line %d", path, i)
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			return nil, fmt.Errorf("mesh: %s: vertex %d has %d fields, want >= 3", path, i, len(fields))
		}
		x, err := strconv.ParseFloat(fields[0], 32)
		if err != nil {
			return nil, fmt.Errorf("mesh: %s: vertex %d: %w", path, i, err)
		}
		y, err := strconv.ParseFloat(fields[1], 32)
		if err != nil {
			return nil, fmt.Errorf("mesh: %s: vertex %d: %w", path, i, err)
		}
		z, err := strconv.ParseFloat(fields[2], 32)
		if err != nil {
			return nil, fmt.Errorf("mesh: %s: vertex %d: %w", path, i, err)
		}
		vertices[i].Pos = mgl32.Vec3{float32(x), float32(y), float32(z)}
	}

	triangles := make([]modelTriangle, faceCount)
	for i := 0; i < faceCount; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("mesh: %s: truncated face data at line %d", path, i)
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) != 4 || fields[0] != "3" {
			return nil, fmt.Errorf("mesh: %s: face %d is not a triangle: %q", path, i, scanner.Text())
		}
		var idx [3]int
		for k := 0; k < 3; k++ {
			v, err := strconv.Atoi(fields[k+1])
			if err != nil {
				return nil, fmt.Errorf("mesh: %s: face %d: %w", path, i, err)
			}
			if v < 0 || v >= vertexCount {
				return nil, fmt.Errorf("mesh: %s: face %d references vertex %d, have %d vertices", path, i, v, vertexCount)
			}
			idx[k] = v
		}
		triangles[i].pt = [3]*ModelVertex{&vertices[idx[0]], &vertices[idx[1]], &vertices[idx[2]]}
	}

	m := &Model{vertices: vertices, triangles: triangles}
	m.prepare()
	return m, nil
}

// parseHeader reads the PLY header and returns the declared vertex and
// face counts, having validated the required property lines.
func parseHeader(scanner *bufio.Scanner) (vertexCount, faceCount int, err error) {
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "ply" {
		return 0, 0, fmt.Errorf("missing 'ply' magic")
	}
	if !scanner.Scan() || strings.Fields(scanner.Text())[0] != "format" {
		return 0, 0, fmt.Errorf("missing format line")
	}

	sawVertexElement, sawFaceElement := false, false
	section := ""
	vertexFloatProps := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "comment":
			continue
		case "end_header":
			if !sawVertexElement || !sawFaceElement {
				return 0, 0, fmt.Errorf("header missing vertex or face element")
			}
			if vertexFloatProps < 3 {
				return 0, 0, fmt.Errorf("vertex element needs x, y, z properties, found %d", vertexFloatProps)
			}
			return vertexCount, faceCount, nil
		case "element":
			if len(fields) < 3 {
				return 0, 0, fmt.Errorf("malformed element line %q", line)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				return 0, 0, fmt.Errorf("element %s count: %w", fields[1], err)
			}
			switch fields[1] {
			case "vertex":
				section, vertexCount, sawVertexElement = "vertex", n, true
			case "face":
				section, faceCount, sawFaceElement = "face", n, true
			default:
				section = ""
			}
		case "property":
			if section == "vertex" && len(fields) >= 3 && fields[1] == "float" {
				vertexFloatProps++
			}
			if section == "face" {
				if len(fields) != 5 || fields[1] != "list" || fields[2] != "uchar" ||
					(fields[3] != "int" && fields[3] != "uint") || fields[4] != "vertex_indices" {
					return 0, 0, fmt.Errorf("unsupported face property line %q", line)
				}
			}
		}
	}
	return 0, 0, fmt.Errorf("truncated header (no end_header)")
}
