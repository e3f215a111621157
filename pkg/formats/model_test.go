package formats

import (
	"errors"
	"testing"

	"github.com/Faultbox/ueformat/pkg/formats/formatstest"
)

func decodeMesh(t *testing.T, m formatstest.Mesh) *Mesh {
	t.Helper()
	obj, err := Decode(m.Envelope("TestMesh", ""))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if obj.Kind() != KindModel || obj.Mesh == nil || obj.World != nil {
		t.Fatalf("unexpected object %+v", obj)
	}
	return obj.Mesh
}

func skinnedMesh() formatstest.Mesh {
	m := formatstest.Triangle()
	m.Bones = []formatstest.Bone{
		{Name: "root", Parent: -1, Rotation: [4]float32{0, 0, 0, 1}},
		{Name: "spine", Parent: 0, Position: [3]float32{0, 0, 50}, Rotation: [4]float32{0.1, 0.2, 0.3, 0.9}},
		{Name: "head", Parent: 1, Position: [3]float32{0, 0, 25}, Rotation: [4]float32{0, 0, 0, 1}},
	}
	m.Weights = []formatstest.Weight{
		{Bone: 1, Vertex: 0, Weight: 0.3},
		{Bone: 1, Vertex: 0, Weight: 0.4},
		{Bone: 2, Vertex: 2, Weight: 1},
	}
	return m
}

func TestDecodeMesh_Geometry(t *testing.T) {
	src := formatstest.Triangle()
	src.Vertices = [][3]float32{{100, 200, 300}, {0, 0, 0}, {-50, 25, 10}}
	src.Tangents = [][3]float32{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}}
	src.Colors = [][4]uint8{{255, 0, 0, 255}, {0, 255, 0, 128}, {0, 0, 255, 0}}

	m := decodeMesh(t, src)

	if m.Name != "TestMesh" {
		t.Errorf("name = %q", m.Name)
	}
	wantVerts := [][3]float32{{1, 2, 3}, {0, 0, 0}, {-0.5, 0.25, 0.1}}
	for i, want := range wantVerts {
		if !approxVec3(m.Vertices[i], want) {
			t.Errorf("vertex %d = %v, want %v", i, m.Vertices[i], want)
		}
	}
	if m.Normals[0] != [3]float32{0, 0, 1} {
		t.Errorf("normals must not be scaled, got %v", m.Normals[0])
	}
	if m.Tangents[2] != [3]float32{1, 0, 0} {
		t.Errorf("tangent = %v", m.Tangents[2])
	}
	if m.Colors[1] != [4]uint8{0, 255, 0, 128} {
		t.Errorf("color = %v", m.Colors[1])
	}
	if m.TexCoords[2] != [2]float32{0, 1} {
		t.Errorf("uv = %v", m.TexCoords[2])
	}
	if len(m.Materials) != 1 || m.Materials[0] != "M_Default" {
		t.Errorf("materials = %v", m.Materials)
	}
}

func TestDecodeMesh_TriangleArity(t *testing.T) {
	src := formatstest.Mesh{
		Vertices: make([][3]float32, 9),
		Indices:  []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8},
	}
	m := decodeMesh(t, src)

	if m.TriangleCount() != 3 {
		t.Fatalf("got %d triangles, want 3", m.TriangleCount())
	}
	want := [][3]uint32{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}}
	for i := range want {
		if m.Indices[i] != want[i] {
			t.Errorf("triangle %d = %v, want %v", i, m.Indices[i], want[i])
		}
	}
}

func TestDecodeMesh_OptionalSectionsAbsent(t *testing.T) {
	m := decodeMesh(t, formatstest.Mesh{
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:  []uint32{0, 1, 2},
	})

	if m.Normals != nil || m.Colors != nil || m.TexCoords != nil || m.Materials != nil {
		t.Error("absent attribute sections should stay nil")
	}
	if m.HasSkeleton() || len(m.Weights) != 0 || len(m.MorphTargets) != 0 {
		t.Error("absent skinning sections should stay empty")
	}
}

func TestDecodeMesh_EmptyBody(t *testing.T) {
	m := decodeMesh(t, formatstest.Mesh{})
	if m.VertexCount() != 0 || m.TriangleCount() != 0 {
		t.Errorf("empty mesh decoded with %d vertices", m.VertexCount())
	}
}

func TestDecodeMesh_Skeleton(t *testing.T) {
	m := decodeMesh(t, skinnedMesh())

	if len(m.Bones) != 3 {
		t.Fatalf("got %d bones", len(m.Bones))
	}
	spine := m.Bones[1]
	if spine.Name != "spine" || spine.ParentIndex != 0 {
		t.Errorf("spine = %+v", spine)
	}
	if !approxVec3(spine.Position, [3]float32{0, 0, 0.5}) {
		t.Errorf("spine position = %v, want meters", spine.Position)
	}
	// Quaternion keeps file order X, Y, Z, W.
	if spine.Rotation != [4]float32{0.1, 0.2, 0.3, 0.9} {
		t.Errorf("spine rotation = %v", spine.Rotation)
	}
	if !m.Bones[0].IsRoot() || m.Bones[2].IsRoot() {
		t.Error("root detection wrong")
	}
	if m.BoneIndex("head") != 2 || m.BoneIndex("tail") != -1 {
		t.Error("BoneIndex lookup wrong")
	}
}

func TestDecodeMesh_WeightsKeepMultiplicity(t *testing.T) {
	m := decodeMesh(t, skinnedMesh())

	if len(m.Weights) != 3 {
		t.Fatalf("got %d weights, want 3 (records must not be merged)", len(m.Weights))
	}
	first, second := m.Weights[0], m.Weights[1]
	if first.BoneIndex != 1 || first.VertexIndex != 0 || !approxEqual(first.Weight, 0.3) {
		t.Errorf("weight 0 = %+v", first)
	}
	if second.BoneIndex != 1 || second.VertexIndex != 0 || !approxEqual(second.Weight, 0.4) {
		t.Errorf("weight 1 = %+v", second)
	}
}

func TestDecodeMesh_BoneParentOrdering(t *testing.T) {
	tests := []struct {
		name    string
		parents []int32
		wantErr bool
	}{
		{"chain", []int32{-1, 0, 1, 2}, false},
		{"fan", []int32{-1, 0, 0, 0}, false},
		{"two roots", []int32{-1, -1, 1}, false},
		{"forward reference", []int32{-1, 0, 5, 1, 2, 3}, true},
		{"self parent", []int32{-1, 1}, true},
		{"below minus one", []int32{-2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := formatstest.Triangle()
			for i, p := range tt.parents {
				src.Bones = append(src.Bones, formatstest.Bone{
					Name:     string(rune('a' + i)),
					Parent:   p,
					Rotation: [4]float32{0, 0, 0, 1},
				})
			}
			_, err := Decode(src.Envelope("Skel", ""))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidBoneParent) {
					t.Errorf("got %v, want ErrInvalidBoneParent", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDecodeMesh_MorphTargets(t *testing.T) {
	src := formatstest.Triangle()
	src.Morphs = []formatstest.Morph{
		{Name: "Smile", Deltas: []formatstest.MorphDelta{
			{Position: [3]float32{0, 0, 10}, Normal: [3]float32{0, 1, 0}, Vertex: 1},
			{Position: [3]float32{5, 0, 0}, Vertex: 2},
		}},
		{Name: "Empty"},
	}

	m := decodeMesh(t, src)
	if len(m.MorphTargets) != 2 {
		t.Fatalf("got %d morph targets", len(m.MorphTargets))
	}
	smile := m.MorphTargets[0]
	if smile.Name != "Smile" || len(smile.Deltas) != 2 {
		t.Fatalf("smile = %+v", smile)
	}
	if !approxVec3(smile.Deltas[0].Position, [3]float32{0, 0, 0.1}) {
		t.Errorf("delta position = %v, want scaled", smile.Deltas[0].Position)
	}
	if smile.Deltas[0].Normal != [3]float32{0, 1, 0} {
		t.Errorf("delta normal = %v, want unscaled", smile.Deltas[0].Normal)
	}
	if smile.Deltas[1].VertexIndex != 2 {
		t.Errorf("delta vertex = %d", smile.Deltas[1].VertexIndex)
	}
	if len(m.MorphTargets[1].Deltas) != 0 {
		t.Error("empty morph target gained deltas")
	}
}

func TestDecodeMesh_Sockets(t *testing.T) {
	src := skinnedMesh()
	src.Sockets = []formatstest.Socket{{
		Name:     "hand_socket",
		Parent:   "head",
		Position: [3]float32{10, 20, 30},
		Rotation: [3]float32{90, 0, 45},
		Scale:    [3]float32{1, 2, 1},
	}}

	m := decodeMesh(t, src)
	s := m.Sockets[0]
	if s.Name != "hand_socket" || s.ParentName != "head" {
		t.Errorf("socket = %+v", s)
	}
	if !approxVec3(s.Position, [3]float32{0.1, 0.2, 0.3}) {
		t.Errorf("socket position = %v", s.Position)
	}
	if s.Rotation != [3]float32{90, 0, 45} || s.Scale != [3]float32{1, 2, 1} {
		t.Errorf("socket rotation/scale must not be scaled: %v %v", s.Rotation, s.Scale)
	}
}

func TestDecodeMesh_CrossReferenceValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *formatstest.Mesh)
		wantErr error
	}{
		{"short normals", func(m *formatstest.Mesh) { m.Normals = m.Normals[:2] }, ErrAttributeCountMismatch},
		{"long uvs", func(m *formatstest.Mesh) { m.TexCoords = append(m.TexCoords, [2]float32{}) }, ErrAttributeCountMismatch},
		{"short colors", func(m *formatstest.Mesh) { m.Colors = [][4]uint8{{1, 2, 3, 4}} }, ErrAttributeCountMismatch},
		{"index past vertices", func(m *formatstest.Mesh) { m.Indices = []uint32{0, 1, 3} }, ErrIndexOutOfRange},
		{"weight vertex", func(m *formatstest.Mesh) {
			m.Weights = append(m.Weights, formatstest.Weight{Bone: 0, Vertex: 7, Weight: 1})
		}, ErrIndexOutOfRange},
		{"weight bone", func(m *formatstest.Mesh) {
			m.Weights = append(m.Weights, formatstest.Weight{Bone: 9, Vertex: 0, Weight: 1})
		}, ErrIndexOutOfRange},
		{"morph vertex", func(m *formatstest.Mesh) {
			m.Morphs = []formatstest.Morph{{Name: "bad", Deltas: []formatstest.MorphDelta{{Vertex: 3}}}}
		}, ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := skinnedMesh()
			tt.mutate(&src)
			obj, err := Decode(src.Envelope("Bad", ""))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if obj != nil {
				t.Error("no object may be returned on error")
			}
		})
	}
}

func TestDecodeMesh_UnknownChunkInterleaved(t *testing.T) {
	src := formatstest.Triangle()
	var w formatstest.Writer
	w.Raw(formatstest.Chunk("LODINFO", 4, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	w.Raw(src.Body())
	w.Raw(formatstest.Chunk("PHYSICSBODY", 0, []byte("opaque")))

	obj, err := Decode(formatstest.Envelope("UMODEL", 2, "Future", "", w.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if obj.Mesh.VertexCount() != 3 || obj.Mesh.TriangleCount() != 1 {
		t.Errorf("mesh misaligned: %d vertices, %d triangles", obj.Mesh.VertexCount(), obj.Mesh.TriangleCount())
	}
	if obj.Header.Version != 2 {
		t.Errorf("version = %d, want 2", obj.Header.Version)
	}
}

func TestDecodeMesh_LenientChunkSizes(t *testing.T) {
	// MATERIALS declares two extra trailing bytes that no element covers.
	var mats formatstest.Writer
	mats.FString("M_A").Raw([]byte{0, 0})
	body := append(formatstest.Mesh{Vertices: [][3]float32{{0, 0, 0}}}.Body(),
		formatstest.Chunk("MATERIALS", 1, mats.Bytes())...)
	data := formatstest.Envelope("UMODEL", 1, "Loose", "", body)

	if _, err := Decode(data); !errors.Is(err, ErrChunkSizeMismatch) {
		t.Fatalf("strict decode: got %v, want ErrChunkSizeMismatch", err)
	}

	// Lenient decoding keeps what was decoded and skips the trailing bytes.
	obj, err := NewDecoder(Options{LenientChunkSizes: true}).Decode(data)
	if err != nil {
		t.Fatalf("lenient decode: %v", err)
	}
	if len(obj.Mesh.Materials) != 1 || obj.Mesh.Materials[0] != "M_A" {
		t.Errorf("materials = %q, want [M_A]", obj.Mesh.Materials)
	}
}
