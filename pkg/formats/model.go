package formats

import (
	"errors"
	"fmt"
)

// Mesh validation errors.
var (
	ErrAttributeCountMismatch = errors.New("vertex attribute count mismatch")
	ErrIndexOutOfRange        = errors.New("index out of range")
	ErrInvalidBoneParent      = errors.New("invalid bone parent index")
)

// Bone is one joint of a mesh skeleton.
type Bone struct {
	Name        string
	ParentIndex int32      // -1 for roots, otherwise an earlier bone
	Position    [3]float32 // Local translation in meters
	Rotation    [4]float32 // Local rotation quaternion, X, Y, Z, W
}

// IsRoot reports whether the bone has no parent.
func (b Bone) IsRoot() bool { return b.ParentIndex < 0 }

// Weight is a single bone influence on a vertex. A vertex may carry several
// records for the same bone; consumers sum them.
type Weight struct {
	BoneIndex   int16
	VertexIndex int32
	Weight      float32
}

// MorphTargetData is one per-vertex delta of a morph target.
type MorphTargetData struct {
	Position    [3]float32 // Position offset in meters
	Normal      [3]float32 // Normal offset
	VertexIndex int32
}

// MorphTarget is a named additive shape variant.
type MorphTarget struct {
	Name   string
	Deltas []MorphTargetData
}

// Socket is an attachment transform parented to a bone by name.
type Socket struct {
	Name       string
	ParentName string     // Bone name
	Position   [3]float32 // Meters
	Rotation   [3]float32 // Euler angles in degrees
	Scale      [3]float32
}

// Mesh is a decoded UMODEL record.
type Mesh struct {
	Name string

	Vertices  [][3]float32 // Positions in meters
	Indices   [][3]uint32  // Triangles
	Normals   [][3]float32
	Tangents  [][3]float32
	Colors    [][4]uint8 // RGBA
	TexCoords [][2]float32
	Materials []string // Empty name marks an unassigned slot

	Bones        []Bone
	Weights      []Weight
	MorphTargets []MorphTarget
	Sockets      []Socket
}

// VertexCount returns the number of vertex positions.
func (m *Mesh) VertexCount() int { return len(m.Vertices) }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) }

// HasSkeleton reports whether the mesh needs an armature.
func (m *Mesh) HasSkeleton() bool { return len(m.Bones) > 0 || len(m.Sockets) > 0 }

// BoneIndex returns the index of the first bone named name, or -1.
func (m *Mesh) BoneIndex(name string) int {
	for i := range m.Bones {
		if m.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate checks cross-references between sections.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)

	attrs := []struct {
		name  string
		count int
	}{
		{"NORMALS", len(m.Normals)},
		{"TANGENTS", len(m.Tangents)},
		{"VERTEXCOLORS", len(m.Colors)},
		{"TEXCOORDS", len(m.TexCoords)},
	}
	for _, a := range attrs {
		if a.count > 0 && a.count != n {
			return fmt.Errorf("%w: %s has %d entries for %d vertices", ErrAttributeCountMismatch, a.name, a.count, n)
		}
	}

	for i, tri := range m.Indices {
		for _, idx := range tri {
			if int64(idx) >= int64(n) {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrIndexOutOfRange, i, idx, n)
			}
		}
	}

	for i, b := range m.Bones {
		if b.ParentIndex < -1 || int(b.ParentIndex) >= i {
			return fmt.Errorf("%w: bone %d (%s) has parent %d", ErrInvalidBoneParent, i, b.Name, b.ParentIndex)
		}
	}

	for i, w := range m.Weights {
		if w.VertexIndex < 0 || int(w.VertexIndex) >= n {
			return fmt.Errorf("%w: weight %d references vertex %d of %d", ErrIndexOutOfRange, i, w.VertexIndex, n)
		}
		if len(m.Bones) > 0 && (w.BoneIndex < 0 || int(w.BoneIndex) >= len(m.Bones)) {
			return fmt.Errorf("%w: weight %d references bone %d of %d", ErrIndexOutOfRange, i, w.BoneIndex, len(m.Bones))
		}
	}

	for _, mt := range m.MorphTargets {
		for j, d := range mt.Deltas {
			if d.VertexIndex < 0 || int(d.VertexIndex) >= n {
				return fmt.Errorf("%w: morph target %s delta %d references vertex %d of %d",
					ErrIndexOutOfRange, mt.Name, j, d.VertexIndex, n)
			}
		}
	}

	return nil
}

// Minimum encoded element sizes, used to bound allocations.
const (
	sizeVec2        = 8
	sizeVec3        = 12
	sizeColor       = 4
	sizeTriangle    = 12
	sizeFString     = 4
	sizeWeight      = 2 + 4 + 4
	sizeBone        = sizeFString + 4 + sizeVec3 + 16
	sizeMorphTarget = sizeFString + 4
	sizeMorphDelta  = sizeVec3 + sizeVec3 + 4
	sizeSocket      = sizeFString*2 + sizeVec3*3
)

var meshChunks = NewChunkTable(
	ChunkEntry[Mesh]{"VERTICES", func(r *Reader, count int32, m *Mesh) (err error) {
		m.Vertices, err = ReadBulkArray(r, count, sizeVec3, (*Reader).ReadScaledVec3)
		return err
	}},
	ChunkEntry[Mesh]{"INDICES", func(r *Reader, count int32, m *Mesh) (err error) {
		// The count is a flat index count, not a triangle count.
		m.Indices, err = ReadBulkArray(r, count/3, sizeTriangle, readTriangle)
		return err
	}},
	ChunkEntry[Mesh]{"NORMALS", func(r *Reader, count int32, m *Mesh) (err error) {
		m.Normals, err = ReadBulkArray(r, count, sizeVec3, (*Reader).ReadVec3)
		return err
	}},
	ChunkEntry[Mesh]{"TANGENTS", func(r *Reader, count int32, m *Mesh) (err error) {
		m.Tangents, err = ReadBulkArray(r, count, sizeVec3, (*Reader).ReadVec3)
		return err
	}},
	ChunkEntry[Mesh]{"VERTEXCOLORS", func(r *Reader, count int32, m *Mesh) (err error) {
		m.Colors, err = ReadBulkArray(r, count, sizeColor, readColor)
		return err
	}},
	ChunkEntry[Mesh]{"TEXCOORDS", func(r *Reader, count int32, m *Mesh) (err error) {
		m.TexCoords, err = ReadBulkArray(r, count, sizeVec2, (*Reader).ReadVec2)
		return err
	}},
	ChunkEntry[Mesh]{"MATERIALS", func(r *Reader, count int32, m *Mesh) (err error) {
		m.Materials, err = ReadBulkArray(r, count, sizeFString, (*Reader).ReadFString)
		return err
	}},
	ChunkEntry[Mesh]{"WEIGHTS", func(r *Reader, count int32, m *Mesh) (err error) {
		m.Weights, err = ReadBulkArray(r, count, sizeWeight, readWeight)
		return err
	}},
	ChunkEntry[Mesh]{"BONES", func(r *Reader, count int32, m *Mesh) (err error) {
		m.Bones, err = ReadBulkArray(r, count, sizeBone, readBone)
		return err
	}},
	ChunkEntry[Mesh]{"MORPHTARGETS", func(r *Reader, count int32, m *Mesh) (err error) {
		m.MorphTargets, err = ReadBulkArray(r, count, sizeMorphTarget, readMorphTarget)
		return err
	}},
	ChunkEntry[Mesh]{"SOCKETS", func(r *Reader, count int32, m *Mesh) (err error) {
		m.Sockets, err = ReadBulkArray(r, count, sizeSocket, readSocket)
		return err
	}},
)

func readTriangle(r *Reader) ([3]uint32, error) {
	var tri [3]uint32
	v, err := r.ReadIntVector(3)
	if err != nil {
		return tri, err
	}
	copy(tri[:], v)
	return tri, nil
}

func readColor(r *Reader) ([4]uint8, error) {
	var c [4]uint8
	v, err := r.ReadByteVector(4)
	if err != nil {
		return c, err
	}
	copy(c[:], v)
	return c, nil
}

func readWeight(r *Reader) (Weight, error) {
	var w Weight
	var err error
	if w.BoneIndex, err = r.ReadInt16(); err != nil {
		return w, err
	}
	if w.VertexIndex, err = r.ReadInt32(); err != nil {
		return w, err
	}
	w.Weight, err = r.ReadFloat32()
	return w, err
}

func readBone(r *Reader) (Bone, error) {
	var b Bone
	var err error
	if b.Name, err = r.ReadFString(); err != nil {
		return b, err
	}
	if b.ParentIndex, err = r.ReadInt32(); err != nil {
		return b, err
	}
	if b.Position, err = r.ReadScaledVec3(); err != nil {
		return b, err
	}
	b.Rotation, err = r.ReadVec4()
	return b, err
}

func readMorphTarget(r *Reader) (MorphTarget, error) {
	var mt MorphTarget
	var err error
	if mt.Name, err = r.ReadFString(); err != nil {
		return mt, err
	}
	count, err := r.ReadInt32()
	if err != nil {
		return mt, err
	}
	if mt.Deltas, err = ReadBulkArray(r, count, sizeMorphDelta, readMorphDelta); err != nil {
		return mt, fmt.Errorf("morph target %s: %w", mt.Name, err)
	}
	return mt, nil
}

func readMorphDelta(r *Reader) (MorphTargetData, error) {
	var d MorphTargetData
	var err error
	if d.Position, err = r.ReadScaledVec3(); err != nil {
		return d, err
	}
	if d.Normal, err = r.ReadVec3(); err != nil {
		return d, err
	}
	d.VertexIndex, err = r.ReadInt32()
	return d, err
}

func readSocket(r *Reader) (Socket, error) {
	var s Socket
	var err error
	if s.Name, err = r.ReadFString(); err != nil {
		return s, err
	}
	if s.ParentName, err = r.ReadFString(); err != nil {
		return s, err
	}
	if s.Position, err = r.ReadScaledVec3(); err != nil {
		return s, err
	}
	if s.Rotation, err = r.ReadVec3(); err != nil {
		return s, err
	}
	s.Scale, err = r.ReadVec3()
	return s, err
}
