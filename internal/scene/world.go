package scene

import (
	"go.uber.org/zap"

	"github.com/Faultbox/ueformat/pkg/formats"
)

// world materializes every hashed mesh without linking it, then links one
// object per actor that shares the mesh data of its hash.
func (t *txn) world(w *formats.World) error {
	byHash := make(map[int32]*MeshData, len(w.Meshes))
	for i := range w.Meshes {
		hm := &w.Meshes[i]
		if _, err := t.model(hm.Header.Name, hm.Mesh, false); err != nil {
			return err
		}
		// The mesh data just added belongs to this hash.
		byHash[hm.Hash] = t.added.Meshes[len(t.added.Meshes)-1]
	}

	for _, actor := range w.Actors {
		data, ok := byHash[actor.Hash]
		if !ok {
			return &formats.DanglingMeshReferenceError{Hash: actor.Hash, Actor: actor.Name}
		}
		t.addObject(&Object{
			Name:     actor.Name,
			Mesh:     data,
			Linked:   true,
			Location: actor.Position,
			Rotation: actor.EulerRadians(),
			Scale:    actor.Scale,
		})
	}

	t.b.log.Debug("placed actors",
		zap.String("world", w.Name),
		zap.Int("meshes", len(w.Meshes)),
		zap.Int("actors", len(w.Actors)))
	return nil
}
