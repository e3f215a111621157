// Package scene materializes decoded UNREALFORMAT objects into an in-memory
// scene graph: mesh objects with vertex groups, shape keys, material slots,
// armatures with bones and sockets, and world actors sharing mesh data.
package scene

import (
	"sort"

	"github.com/Faultbox/ueformat/pkg/math"
)

// Layer and group names assigned during materialization.
const (
	UVLayerName    = "UV0"
	ColorLayerName = "COL0"
	BasisShapeKey  = "Default"
	MeshSuffix     = "_MESH"

	GroupLeafBones       = "Leaf Bones"
	GroupWeightlessBones = "Weightless Bones"
	GroupSockets         = "Sockets"
)

// DefaultBoneLength is the display length given to every bone and socket.
const DefaultBoneLength = 0.05

// Scene holds everything created by a Builder.
type Scene struct {
	// Objects lists every object in creation order, linked or not.
	Objects   []*Object
	Meshes    []*MeshData
	Materials []*Material

	materials map[string]*Material
}

// Linked returns the objects linked into the scene root.
func (s *Scene) Linked() []*Object {
	var out []*Object
	for _, obj := range s.Objects {
		if obj.Linked {
			out = append(out, obj)
		}
	}
	return out
}

// Object returns the first object with the given name.
func (s *Scene) Object(name string) *Object {
	for _, obj := range s.Objects {
		if obj.Name == name {
			return obj
		}
	}
	return nil
}

// Material is a named material shared by every slot that references it.
type Material struct {
	Name string
}

// Object is a placed scene node carrying either mesh or armature data.
type Object struct {
	Name     string
	Mesh     *MeshData
	Armature *Armature
	Parent   *Object
	Linked   bool

	Location [3]float32
	// Rotation is an XYZ Euler rotation in radians.
	Rotation [3]float32
	Scale    [3]float32

	VertexGroups []*VertexGroup
	Modifiers    []Modifier
}

// Transform returns the object's local matrix.
func (o *Object) Transform() math.Mat4 {
	return math.LocRotScale(o.Location, math.EulerXYZ(o.Rotation), o.Scale)
}

// VertexGroup returns the group with the given name, or nil.
func (o *Object) VertexGroup(name string) *VertexGroup {
	for _, g := range o.VertexGroups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// MeshData is renderable geometry. It can be shared by several objects.
type MeshData struct {
	Name      string
	Positions [][3]float32
	Triangles [][3]uint32
	// Smooth is set when custom normals were supplied.
	Smooth        bool
	CustomNormals [][3]float32
	UVLayers      []UVLayer
	ColorLayers   []ColorLayer
	// Materials holds one slot per source material; empty names leave a
	// nil slot.
	Materials []*Material
	ShapeKeys []ShapeKey
	Bounds    Bounds
}

// LoopCount returns the number of face corners.
func (m *MeshData) LoopCount() int {
	return len(m.Triangles) * 3
}

// ShapeKey returns the key with the given name, or nil.
func (m *MeshData) ShapeKey(name string) *ShapeKey {
	for i := range m.ShapeKeys {
		if m.ShapeKeys[i].Name == name {
			return &m.ShapeKeys[i]
		}
	}
	return nil
}

// UVLayer stores one coordinate per loop.
type UVLayer struct {
	Name string
	Data [][2]float32
}

// ColorLayer stores one normalized RGBA colour per loop.
type ColorLayer struct {
	Name string
	Data [][4]float32
}

// ShapeKey is a full set of vertex positions.
type ShapeKey struct {
	Name          string
	Interpolation string
	Positions     [][3]float32
}

// Bounds holds the axis-aligned bounding box of a mesh.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// VertexGroup maps vertex indices to a bone influence.
type VertexGroup struct {
	Name    string
	Weights map[int32]float32
}

// VertexWeight is one entry of a vertex group.
type VertexWeight struct {
	Vertex int32
	Weight float32
}

// Sorted returns the group's weights ordered by vertex index.
func (g *VertexGroup) Sorted() []VertexWeight {
	out := make([]VertexWeight, 0, len(g.Weights))
	for v, w := range g.Weights {
		out = append(out, VertexWeight{Vertex: v, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vertex < out[j].Vertex })
	return out
}

// ModifierKind identifies a modifier.
type ModifierKind string

// ModifierArmature deforms a mesh by an armature object.
const ModifierArmature ModifierKind = "ARMATURE"

// Modifier binds a mesh object to a deforming object.
type Modifier struct {
	Kind            ModifierKind
	Object          *Object
	UseVertexGroups bool
}

// Armature is a bone hierarchy.
type Armature struct {
	Name  string
	Bones []*Bone
}

// Bone returns the bone with the given name, or nil.
func (a *Armature) Bone(name string) *Bone {
	for _, b := range a.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Bone is a bone or socket in armature space.
type Bone struct {
	Name     string
	Parent   *Bone
	Children []*Bone
	// Matrix is the bone's armature-space transform.
	Matrix math.Mat4
	Length float32
	Group  string
	Socket bool
}

// Head returns the bone origin.
func (b *Bone) Head() [3]float32 {
	return b.Matrix.Translation()
}

// Tail returns the end point along the bone's local Y axis.
func (b *Bone) Tail() [3]float32 {
	return b.Matrix.TransformPoint([3]float32{0, b.Length, 0})
}

// Stats summarizes a scene.
type Stats struct {
	Objects   int
	Meshes    int
	Materials int
	Vertices  int
	Triangles int
	Bones     int
	Sockets   int
	ShapeKeys int
}

// Stats counts the scene contents.
func (s *Scene) Stats() Stats {
	st := Stats{
		Objects:   len(s.Objects),
		Meshes:    len(s.Meshes),
		Materials: len(s.Materials),
	}
	for _, m := range s.Meshes {
		st.Vertices += len(m.Positions)
		st.Triangles += len(m.Triangles)
		st.ShapeKeys += len(m.ShapeKeys)
	}
	for _, obj := range s.Objects {
		if obj.Armature == nil {
			continue
		}
		for _, b := range obj.Armature.Bones {
			if b.Socket {
				st.Sockets++
			} else {
				st.Bones++
			}
		}
	}
	return st
}
