package formats

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/Faultbox/ueformat/pkg/formats/formatstest"
)

func testWorld() formatstest.World {
	return formatstest.World{
		Meshes: []formatstest.HashedMesh{
			{Hash: 42, Data: formatstest.Triangle().Envelope("SM_Tri", "")},
		},
		Actors: []formatstest.Actor{{
			Hash:     42,
			Name:     "Tri_1",
			Position: [3]float32{100, 200, 300},
			Rotation: [3]float32{90, 180, 45},
			Scale:    [3]float32{1, 1, 2},
		}},
	}
}

func TestDecodeWorld_Resolves(t *testing.T) {
	obj, err := Decode(testWorld().Envelope("Lobby", ""))
	if err != nil {
		t.Fatal(err)
	}
	if obj.Kind() != KindWorld || obj.World == nil || obj.Mesh != nil {
		t.Fatalf("unexpected object %+v", obj)
	}
	w := obj.World

	if w.Name != "Lobby" || len(w.Meshes) != 1 || len(w.Actors) != 1 {
		t.Fatalf("world = %+v", w)
	}

	mesh, ok := w.Mesh(42)
	if !ok {
		t.Fatal("hash 42 not resolved")
	}
	standalone, err := Decode(formatstest.Triangle().Envelope("SM_Tri", ""))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(mesh, standalone.Mesh) {
		t.Errorf("embedded mesh differs from standalone decode")
	}
	if w.Meshes[0].Header.Name != "SM_Tri" || w.Meshes[0].Mesh != mesh {
		t.Errorf("hashed mesh not filled: %+v", w.Meshes[0].Header)
	}

	a := w.Actors[0]
	if a.Name != "Tri_1" || a.Hash != 42 {
		t.Errorf("actor = %+v", a)
	}
	if !approxVec3(a.Position, [3]float32{1, 2, 3}) {
		t.Errorf("actor position = %v", a.Position)
	}
	if a.Rotation != [3]float32{90, 180, 45} || a.Scale != [3]float32{1, 1, 2} {
		t.Errorf("actor rotation/scale = %v %v", a.Rotation, a.Scale)
	}
}

func TestDecodeWorld_DanglingReference(t *testing.T) {
	src := testWorld()
	src.Actors = append(src.Actors, formatstest.Actor{Hash: 99, Name: "Ghost", Scale: [3]float32{1, 1, 1}})

	obj, err := Decode(src.Envelope("Lobby", ""))
	if !errors.Is(err, ErrDanglingMeshReference) {
		t.Fatalf("got %v, want ErrDanglingMeshReference", err)
	}
	if obj != nil {
		t.Error("no object may be returned on error")
	}

	var dangling *DanglingMeshReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("error %T does not carry details", err)
	}
	if dangling.Hash != 99 || dangling.Actor != "Ghost" {
		t.Errorf("details = %+v", dangling)
	}
}

func TestDecodeWorld_EmptyIsValid(t *testing.T) {
	obj, err := Decode(formatstest.World{}.Envelope("Empty", ""))
	if err != nil {
		t.Fatal(err)
	}
	if len(obj.World.Meshes) != 0 || len(obj.World.Actors) != 0 {
		t.Errorf("world = %+v", obj.World)
	}
}

func TestDecodeWorld_UnusedMeshIsValid(t *testing.T) {
	src := testWorld()
	src.Actors = nil
	obj, err := Decode(src.Envelope("Props", ""))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := obj.World.Mesh(42); !ok {
		t.Error("unreferenced mesh must still be decoded")
	}
}

func TestDecodeWorld_ActorsBeforeMeshes(t *testing.T) {
	src := testWorld()
	full := src.Body()
	// Re-order: ACTORS chunk first, MESHES second.
	headers, err := ListChunks(NewReader(full))
	if err != nil {
		t.Fatal(err)
	}
	meshesLen := chunkSize(headers[0])
	reordered := append(append([]byte{}, full[meshesLen:]...), full[:meshesLen]...)

	obj, err := Decode(formatstest.Envelope("UWORLD", 1, "Reordered", "", reordered))
	if err != nil {
		t.Fatalf("chunks in any order must decode: %v", err)
	}
	if _, ok := obj.World.Mesh(obj.World.Actors[0].Hash); !ok {
		t.Error("actor not resolved")
	}
}

func chunkSize(h ChunkHeader) int {
	return 4 + len(h.Name) + 4 + 4 + int(h.ByteLength)
}

func TestDecodeWorld_DuplicateHash(t *testing.T) {
	src := testWorld()
	src.Meshes = append(src.Meshes, src.Meshes[0])

	_, err := Decode(src.Envelope("Dup", ""))
	if !errors.Is(err, ErrDuplicateMeshHash) {
		t.Errorf("got %v, want ErrDuplicateMeshHash", err)
	}
}

func TestDecodeWorld_NestedErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"nested world", formatstest.World{}.Envelope("Inner", ""), ErrUnexpectedNestedKind},
		{"nested world with dangling actor", formatstest.World{
			Actors: []formatstest.Actor{{Hash: 7, Name: "A"}},
		}.Envelope("Inner", ""), ErrUnexpectedNestedKind},
		{"nested compressed world", formatstest.World{}.Envelope("Inner", "ZSTD"), ErrUnexpectedNestedKind},
		{"nested garbage", []byte("garbage garbage garbage"), ErrInvalidMagic},
		{"nested animation", formatstest.Envelope("UANIM", 1, "Walk", "", nil), ErrUnsupportedKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testWorld()
			src.Meshes[0].Data = tt.data
			_, err := Decode(src.Envelope("Lobby", ""))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeWorld_DeepNestingStopsAtFirstLevel(t *testing.T) {
	// The innermost blob is not a container at all; reaching it would
	// report ErrInvalidMagic instead.
	inner := []byte("garbage garbage garbage")
	for i := 0; i < 64; i++ {
		inner = formatstest.World{
			Meshes: []formatstest.HashedMesh{{Hash: int32(i), Data: inner}},
		}.Envelope("Level", "")
	}

	_, err := Decode(inner)
	if !errors.Is(err, ErrUnexpectedNestedKind) {
		t.Fatalf("got %v, want ErrUnexpectedNestedKind", err)
	}
	if errors.Is(err, ErrInvalidMagic) {
		t.Error("nested world body was decoded")
	}
	if strings.Count(err.Error(), "mesh hash") != 1 {
		t.Errorf("error should name only the outermost hash: %v", err)
	}
}

func TestDecodeWorld_CompressedNested(t *testing.T) {
	src := formatstest.World{
		Meshes: []formatstest.HashedMesh{
			{Hash: 1, Data: formatstest.Triangle().Envelope("A", "GZIP")},
			{Hash: 2, Data: formatstest.Triangle().Envelope("B", "ZSTD")},
		},
		Actors: []formatstest.Actor{{Hash: 2, Name: "B_1"}, {Hash: 1, Name: "A_1"}},
	}

	obj, err := Decode(src.Envelope("Mixed", "ZSTD"))
	if err != nil {
		t.Fatal(err)
	}
	for _, hash := range []int32{1, 2} {
		if m, ok := obj.World.Mesh(hash); !ok || m.VertexCount() != 3 {
			t.Errorf("hash %d not decoded", hash)
		}
	}
	if got := obj.World.ActorsByMesh(); got[1] != 1 || got[2] != 1 {
		t.Errorf("ActorsByMesh = %v", got)
	}
}

func TestDecodeWorld_ParallelMatchesSequential(t *testing.T) {
	src := formatstest.World{}
	for i := int32(0); i < 16; i++ {
		m := formatstest.Triangle()
		m.Vertices[1][0] = float32(i * 100)
		src.Meshes = append(src.Meshes, formatstest.HashedMesh{Hash: i, Data: m.Envelope("SM", "")})
		src.Actors = append(src.Actors, formatstest.Actor{Hash: i, Name: "A"})
	}
	data := src.Envelope("Grid", "")

	seq, err := NewDecoder(Options{}).Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	par, err := NewDecoder(Options{Workers: 4}).Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seq.World.Meshes, par.World.Meshes) {
		t.Error("parallel decode differs from sequential")
	}

	// The first failing mesh in file order is reported.
	src.Meshes[3].Data = []byte("bad")
	src.Meshes[9].Data = []byte("bad")
	_, err = NewDecoder(Options{Workers: 4}).Decode(src.Envelope("Grid", ""))
	want := "mesh hash 3"
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Errorf("got %v, want error mentioning %q", err, want)
	}
}

func TestActor_EulerRadians(t *testing.T) {
	a := Actor{Rotation: [3]float32{90, 180, 45}}
	got := a.EulerRadians()
	want := [3]float32{math.Pi / 4, math.Pi / 2, math.Pi}
	if !approxVec3(got, want) {
		t.Errorf("got %v, want %v (pitch, yaw, roll to X, Y, Z)", got, want)
	}
}
