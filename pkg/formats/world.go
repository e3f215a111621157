package formats

import (
	"errors"
	"fmt"
	"math"
)

// World errors.
var (
	ErrDanglingMeshReference = errors.New("dangling mesh reference")
	ErrDuplicateMeshHash     = errors.New("duplicate mesh hash")
	ErrUnexpectedNestedKind  = errors.New("unexpected nested object kind")
)

// DanglingMeshReferenceError reports an actor whose mesh hash has no
// decoded mesh.
type DanglingMeshReferenceError struct {
	Hash  int32
	Actor string
}

func (e *DanglingMeshReferenceError) Error() string {
	return fmt.Sprintf("%v: actor %q references mesh hash %d", ErrDanglingMeshReference, e.Actor, e.Hash)
}

// Unwrap lets errors.Is match ErrDanglingMeshReference.
func (e *DanglingMeshReferenceError) Unwrap() error { return ErrDanglingMeshReference }

// HashedMesh is an embedded mesh envelope keyed by hash.
type HashedMesh struct {
	Hash   int32
	Data   []byte // Complete nested UNREALFORMAT envelope
	Header Header // Filled once Data is decoded
	Mesh   *Mesh  // Filled once Data is decoded
}

// Actor places a hashed mesh in the world.
type Actor struct {
	Hash     int32
	Name     string
	Position [3]float32 // Meters
	Rotation [3]float32 // Degrees: pitch, yaw, roll
	Scale    [3]float32
}

// EulerRadians returns the actor rotation as XYZ Euler angles in radians.
// The file stores pitch, yaw and roll, which are rotations about Y, Z and X.
func (a Actor) EulerRadians() [3]float32 {
	return [3]float32{
		radians(a.Rotation[2]),
		radians(a.Rotation[0]),
		radians(a.Rotation[1]),
	}
}

func radians(deg float32) float32 {
	return float32(float64(deg) * math.Pi / 180)
}

// World is a decoded UWORLD record.
type World struct {
	Name   string
	Meshes []HashedMesh
	Actors []Actor

	byHash map[int32]*Mesh
}

// Mesh returns the decoded mesh for hash.
func (w *World) Mesh(hash int32) (*Mesh, bool) {
	m, ok := w.byHash[hash]
	return m, ok
}

// ActorsByMesh returns the number of actors placed per mesh hash.
func (w *World) ActorsByMesh() map[int32]int {
	counts := make(map[int32]int)
	for _, a := range w.Actors {
		counts[a.Hash]++
	}
	return counts
}

// resolve builds the hash lookup from decoded meshes and checks every actor
// against it.
func (w *World) resolve() error {
	w.byHash = make(map[int32]*Mesh, len(w.Meshes))
	for i := range w.Meshes {
		hm := &w.Meshes[i]
		if _, dup := w.byHash[hm.Hash]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateMeshHash, hm.Hash)
		}
		w.byHash[hm.Hash] = hm.Mesh
	}

	for _, a := range w.Actors {
		if _, ok := w.byHash[a.Hash]; !ok {
			return &DanglingMeshReferenceError{Hash: a.Hash, Actor: a.Name}
		}
	}
	return nil
}

const (
	sizeHashedMesh = 4 + 4
	sizeActor      = 4 + sizeFString + sizeVec3*3
)

var worldChunks = NewChunkTable(
	ChunkEntry[World]{"MESHES", func(r *Reader, count int32, w *World) (err error) {
		w.Meshes, err = ReadBulkArray(r, count, sizeHashedMesh, readHashedMesh)
		return err
	}},
	ChunkEntry[World]{"ACTORS", func(r *Reader, count int32, w *World) (err error) {
		w.Actors, err = ReadBulkArray(r, count, sizeActor, readActor)
		return err
	}},
)

func readHashedMesh(r *Reader) (HashedMesh, error) {
	var hm HashedMesh
	var err error
	if hm.Hash, err = r.ReadInt32(); err != nil {
		return hm, err
	}
	size, err := r.ReadInt32()
	if err != nil {
		return hm, err
	}
	hm.Data, err = r.ReadBytes(int(size))
	return hm, err
}

func readActor(r *Reader) (Actor, error) {
	var a Actor
	var err error
	if a.Hash, err = r.ReadInt32(); err != nil {
		return a, err
	}
	if a.Name, err = r.ReadFString(); err != nil {
		return a, err
	}
	if a.Position, err = r.ReadScaledVec3(); err != nil {
		return a, err
	}
	if a.Rotation, err = r.ReadVec3(); err != nil {
		return a, err
	}
	a.Scale, err = r.ReadVec3()
	return a, err
}
