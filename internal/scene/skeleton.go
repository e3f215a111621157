package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/ueformat/pkg/formats"
	"github.com/Faultbox/ueformat/pkg/math"
)

// armature builds the bone hierarchy of m followed by its sockets.
// meshObj supplies the vertex groups that decide which bones are weightless.
func (t *txn) armature(name string, m *formats.Mesh, meshObj *Object) (*Armature, error) {
	arm := &Armature{Name: name}
	length := t.b.opts.BoneLength

	// Parents always precede children, so arm.Bones[i] is m.Bones[i].
	for _, src := range m.Bones {
		local := math.Translate(src.Position[0], src.Position[1], src.Position[2]).
			Mul(math.QuatFromXYZW(src.Rotation).ToMat4())

		bone := &Bone{Name: src.Name, Matrix: local, Length: length}
		if !src.IsRoot() {
			parent := arm.Bones[src.ParentIndex]
			bone.Parent = parent
			bone.Matrix = parent.Matrix.Mul(local)
			parent.Children = append(parent.Children, bone)
		}
		arm.Bones = append(arm.Bones, bone)
	}

	for _, bone := range arm.Bones {
		if len(bone.Children) == 0 {
			bone.Group = GroupLeafBones
		}
		if meshObj.VertexGroup(bone.Name) == nil {
			bone.Group = GroupWeightlessBones
		}
	}

	for _, src := range m.Sockets {
		parentMatrix := math.Identity()
		var parent *Bone
		if src.ParentName != "" {
			parent = arm.Bone(src.ParentName)
			if parent == nil {
				return nil, fmt.Errorf("%w: socket %q references %q", ErrUnknownSocketBone, src.Name, src.ParentName)
			}
			parentMatrix = parent.Matrix
		}

		local := math.LocRotScale(src.Position, math.EulerXYZ(math.RadiansVec3(src.Rotation)), src.Scale)
		socket := &Bone{
			Name:   src.Name,
			Parent: parent,
			Matrix: parentMatrix.Mul(local),
			Length: length,
			Group:  GroupSockets,
			Socket: true,
		}
		if parent != nil {
			parent.Children = append(parent.Children, socket)
		}
		arm.Bones = append(arm.Bones, socket)
	}

	t.b.log.Debug("built armature",
		zap.String("armature", name),
		zap.Int("bones", len(m.Bones)),
		zap.Int("sockets", len(m.Sockets)))
	return arm, nil
}
