// Package export serializes a materialized scene as a YAML or CBOR document.
package export

import (
	"github.com/Faultbox/ueformat/internal/scene"
)

// Document is the serialized form of a scene. Objects reference meshes by
// index into Meshes and materials by name.
type Document struct {
	Objects   []Object `yaml:"objects" cbor:"objects"`
	Meshes    []Mesh   `yaml:"meshes" cbor:"meshes"`
	Materials []string `yaml:"materials,omitempty" cbor:"materials,omitempty"`
	Stats     Stats    `yaml:"stats" cbor:"stats"`
}

// Stats mirrors scene.Stats.
type Stats struct {
	Objects   int `yaml:"objects" cbor:"objects"`
	Meshes    int `yaml:"meshes" cbor:"meshes"`
	Materials int `yaml:"materials" cbor:"materials"`
	Vertices  int `yaml:"vertices" cbor:"vertices"`
	Triangles int `yaml:"triangles" cbor:"triangles"`
	Bones     int `yaml:"bones" cbor:"bones"`
	Sockets   int `yaml:"sockets" cbor:"sockets"`
	ShapeKeys int `yaml:"shape_keys" cbor:"shape_keys"`
}

// Object is a serialized scene object.
type Object struct {
	Name         string        `yaml:"name" cbor:"name"`
	Parent       string        `yaml:"parent,omitempty" cbor:"parent,omitempty"`
	Linked       bool          `yaml:"linked" cbor:"linked"`
	Mesh         *int          `yaml:"mesh,omitempty" cbor:"mesh,omitempty"`
	Armature     *Armature     `yaml:"armature,omitempty" cbor:"armature,omitempty"`
	Location     [3]float32    `yaml:"location,flow" cbor:"location"`
	Rotation     [3]float32    `yaml:"rotation,flow" cbor:"rotation"`
	Scale        [3]float32    `yaml:"scale,flow" cbor:"scale"`
	VertexGroups []VertexGroup `yaml:"vertex_groups,omitempty" cbor:"vertex_groups,omitempty"`
	Modifiers    []Modifier    `yaml:"modifiers,omitempty" cbor:"modifiers,omitempty"`
}

// Mesh is serialized mesh data.
type Mesh struct {
	Name          string        `yaml:"name" cbor:"name"`
	Positions     [][3]float32  `yaml:"positions,flow" cbor:"positions"`
	Triangles     [][3]uint32   `yaml:"triangles,flow" cbor:"triangles"`
	Smooth        bool          `yaml:"smooth" cbor:"smooth"`
	CustomNormals [][3]float32  `yaml:"custom_normals,omitempty,flow" cbor:"custom_normals,omitempty"`
	UVLayers      []UVLayer     `yaml:"uv_layers,omitempty" cbor:"uv_layers,omitempty"`
	ColorLayers   []ColorLayer  `yaml:"color_layers,omitempty" cbor:"color_layers,omitempty"`
	Materials     []string      `yaml:"materials,omitempty" cbor:"materials,omitempty"`
	ShapeKeys     []ShapeKey    `yaml:"shape_keys,omitempty" cbor:"shape_keys,omitempty"`
	Bounds        [2][3]float32 `yaml:"bounds,flow" cbor:"bounds"`
}

// UVLayer is a serialized per-loop UV layer.
type UVLayer struct {
	Name string       `yaml:"name" cbor:"name"`
	Data [][2]float32 `yaml:"data,flow" cbor:"data"`
}

// ColorLayer is a serialized per-loop colour layer.
type ColorLayer struct {
	Name string       `yaml:"name" cbor:"name"`
	Data [][4]float32 `yaml:"data,flow" cbor:"data"`
}

// ShapeKey is a serialized shape key.
type ShapeKey struct {
	Name          string       `yaml:"name" cbor:"name"`
	Interpolation string       `yaml:"interpolation" cbor:"interpolation"`
	Positions     [][3]float32 `yaml:"positions,flow" cbor:"positions"`
}

// VertexGroup is a serialized vertex group, ordered by vertex.
type VertexGroup struct {
	Name    string         `yaml:"name" cbor:"name"`
	Weights []VertexWeight `yaml:"weights,flow" cbor:"weights"`
}

// VertexWeight is one vertex group entry.
type VertexWeight struct {
	Vertex int32   `yaml:"v" cbor:"v"`
	Weight float32 `yaml:"w" cbor:"w"`
}

// Modifier is a serialized modifier.
type Modifier struct {
	Kind            string `yaml:"kind" cbor:"kind"`
	Object          string `yaml:"object" cbor:"object"`
	UseVertexGroups bool   `yaml:"use_vertex_groups" cbor:"use_vertex_groups"`
}

// Armature is a serialized bone hierarchy.
type Armature struct {
	Name  string `yaml:"name" cbor:"name"`
	Bones []Bone `yaml:"bones" cbor:"bones"`
}

// Bone is a serialized bone or socket. Matrix is row-major.
type Bone struct {
	Name   string        `yaml:"name" cbor:"name"`
	Parent string        `yaml:"parent,omitempty" cbor:"parent,omitempty"`
	Head   [3]float32    `yaml:"head,flow" cbor:"head"`
	Tail   [3]float32    `yaml:"tail,flow" cbor:"tail"`
	Matrix [4][4]float32 `yaml:"matrix,flow" cbor:"matrix"`
	Group  string        `yaml:"group,omitempty" cbor:"group,omitempty"`
	Socket bool          `yaml:"socket,omitempty" cbor:"socket,omitempty"`
}

// FromScene converts s into a Document.
func FromScene(s *scene.Scene) *Document {
	doc := &Document{Stats: Stats(s.Stats())}

	meshIndex := make(map[*scene.MeshData]int, len(s.Meshes))
	for i, m := range s.Meshes {
		meshIndex[m] = i
		doc.Meshes = append(doc.Meshes, meshDoc(m))
	}
	for _, mat := range s.Materials {
		doc.Materials = append(doc.Materials, mat.Name)
	}

	for _, obj := range s.Objects {
		o := Object{
			Name:     obj.Name,
			Linked:   obj.Linked,
			Location: obj.Location,
			Rotation: obj.Rotation,
			Scale:    obj.Scale,
		}
		if obj.Parent != nil {
			o.Parent = obj.Parent.Name
		}
		if obj.Mesh != nil {
			if idx, ok := meshIndex[obj.Mesh]; ok {
				o.Mesh = &idx
			}
		}
		if obj.Armature != nil {
			o.Armature = armatureDoc(obj.Armature)
		}
		for _, g := range obj.VertexGroups {
			vg := VertexGroup{Name: g.Name}
			for _, w := range g.Sorted() {
				vg.Weights = append(vg.Weights, VertexWeight{Vertex: w.Vertex, Weight: w.Weight})
			}
			o.VertexGroups = append(o.VertexGroups, vg)
		}
		for _, mod := range obj.Modifiers {
			md := Modifier{Kind: string(mod.Kind), UseVertexGroups: mod.UseVertexGroups}
			if mod.Object != nil {
				md.Object = mod.Object.Name
			}
			o.Modifiers = append(o.Modifiers, md)
		}
		doc.Objects = append(doc.Objects, o)
	}
	return doc
}

func meshDoc(m *scene.MeshData) Mesh {
	out := Mesh{
		Name:          m.Name,
		Positions:     m.Positions,
		Triangles:     m.Triangles,
		Smooth:        m.Smooth,
		CustomNormals: m.CustomNormals,
		Bounds:        [2][3]float32{m.Bounds.Min, m.Bounds.Max},
	}
	for _, l := range m.UVLayers {
		out.UVLayers = append(out.UVLayers, UVLayer{Name: l.Name, Data: l.Data})
	}
	for _, l := range m.ColorLayers {
		out.ColorLayers = append(out.ColorLayers, ColorLayer{Name: l.Name, Data: l.Data})
	}
	for _, mat := range m.Materials {
		// An empty slot keeps its position as "".
		name := ""
		if mat != nil {
			name = mat.Name
		}
		out.Materials = append(out.Materials, name)
	}
	for _, k := range m.ShapeKeys {
		out.ShapeKeys = append(out.ShapeKeys, ShapeKey{Name: k.Name, Interpolation: k.Interpolation, Positions: k.Positions})
	}
	return out
}

func armatureDoc(a *scene.Armature) *Armature {
	out := &Armature{Name: a.Name}
	for _, b := range a.Bones {
		bd := Bone{
			Name:   b.Name,
			Head:   b.Head(),
			Tail:   b.Tail(),
			Matrix: b.Matrix.Rows(),
			Group:  b.Group,
			Socket: b.Socket,
		}
		if b.Parent != nil {
			bd.Parent = b.Parent.Name
		}
		out.Bones = append(out.Bones, bd)
	}
	return out
}
