package scene

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/ueformat/pkg/formats"
)

// Materialization errors.
var (
	ErrEmptyObject       = errors.New("decoded object has no payload")
	ErrUnknownSocketBone = errors.New("socket parent bone not found")
)

// Options controls materialization.
type Options struct {
	// LinkRoot links the top-level object of a standalone mesh into the
	// scene. World actors are always linked and their meshes never are.
	LinkRoot bool
	// BoneLength is the display length of bones and sockets in meters.
	BoneLength float32
	Logger     *zap.Logger
}

// DefaultOptions returns the options used by the import command.
func DefaultOptions() Options {
	return Options{LinkRoot: true, BoneLength: DefaultBoneLength}
}

// Builder accumulates decoded objects into one Scene.
type Builder struct {
	opts  Options
	log   *zap.Logger
	scene *Scene
}

// NewBuilder creates a builder with an empty scene.
func NewBuilder(opts Options) *Builder {
	if opts.BoneLength <= 0 {
		opts.BoneLength = DefaultBoneLength
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		opts:  opts,
		log:   log,
		scene: &Scene{materials: make(map[string]*Material)},
	}
}

// Scene returns the scene built so far.
func (b *Builder) Scene() *Scene { return b.scene }

// Materialize adds obj to the builder's scene. On error the scene is left
// unchanged.
func (b *Builder) Materialize(obj *formats.Object) (*Scene, error) {
	if obj == nil {
		return nil, ErrEmptyObject
	}

	t := &txn{b: b, added: &Scene{materials: make(map[string]*Material)}}
	var err error
	switch obj.Kind() {
	case formats.KindModel:
		if obj.Mesh == nil {
			return nil, fmt.Errorf("%w: %s %q", ErrEmptyObject, obj.Kind(), obj.Header.Name)
		}
		_, err = t.model(obj.Header.Name, obj.Mesh, b.opts.LinkRoot)
	case formats.KindWorld:
		if obj.World == nil {
			return nil, fmt.Errorf("%w: %s %q", ErrEmptyObject, obj.Kind(), obj.Header.Name)
		}
		err = t.world(obj.World)
	default:
		err = fmt.Errorf("%w: %q", formats.ErrUnsupportedKind, obj.Kind())
	}
	if err != nil {
		return nil, fmt.Errorf("materialize %q: %w", obj.Header.Name, err)
	}

	t.commit()
	st := b.scene.Stats()
	b.log.Info("materialized object",
		zap.String("kind", obj.Kind().String()),
		zap.String("name", obj.Header.Name),
		zap.Int("objects", st.Objects),
		zap.Int("meshes", st.Meshes),
		zap.Int("materials", st.Materials))
	return b.scene, nil
}

// Materialize builds a fresh scene from one decoded object.
func Materialize(obj *formats.Object, opts Options) (*Scene, error) {
	return NewBuilder(opts).Materialize(obj)
}

// txn collects the objects created for one Materialize call so a failure
// leaves the builder's scene untouched.
type txn struct {
	b     *Builder
	added *Scene
}

func (t *txn) commit() {
	s := t.b.scene
	s.Objects = append(s.Objects, t.added.Objects...)
	s.Meshes = append(s.Meshes, t.added.Meshes...)
	for _, mat := range t.added.Materials {
		s.Materials = append(s.Materials, mat)
		s.materials[mat.Name] = mat
	}
}

func (t *txn) addObject(obj *Object) *Object {
	t.added.Objects = append(t.added.Objects, obj)
	return obj
}

// material returns the shared material for name, creating it on first use.
func (t *txn) material(name string) *Material {
	if mat, ok := t.b.scene.materials[name]; ok {
		return mat
	}
	if mat, ok := t.added.materials[name]; ok {
		return mat
	}
	mat := &Material{Name: name}
	t.added.materials[name] = mat
	t.added.Materials = append(t.added.Materials, mat)
	return mat
}

// model materializes one mesh record and returns its top-level object: the
// armature when the mesh has a skeleton, otherwise the mesh object.
func (t *txn) model(name string, m *formats.Mesh, link bool) (*Object, error) {
	// Objects built by hand never went through the decoder's checks.
	if err := m.Validate(); err != nil {
		return nil, err
	}
	data := t.meshData(name, m)

	meshObj := t.addObject(&Object{
		Name:   name,
		Mesh:   data,
		Linked: link,
		Scale:  [3]float32{1, 1, 1},
	})
	t.vertexGroups(meshObj, m)

	if !m.HasSkeleton() {
		return meshObj, nil
	}

	meshObj.Name += MeshSuffix
	arm, err := t.armature(name, m, meshObj)
	if err != nil {
		return nil, err
	}
	armObj := t.addObject(&Object{
		Name:     name,
		Armature: arm,
		Linked:   link,
		Scale:    [3]float32{1, 1, 1},
	})
	meshObj.Parent = armObj
	if len(m.Bones) > 0 {
		meshObj.Modifiers = append(meshObj.Modifiers, Modifier{
			Kind:            ModifierArmature,
			Object:          armObj,
			UseVertexGroups: true,
		})
	}
	return armObj, nil
}

func (t *txn) meshData(name string, m *formats.Mesh) *MeshData {
	data := &MeshData{
		Name:      name,
		Positions: m.Vertices,
		Triangles: m.Indices,
		Bounds:    computeBounds(m.Vertices),
	}
	t.added.Meshes = append(t.added.Meshes, data)

	if len(m.Normals) > 0 {
		data.Smooth = true
		data.CustomNormals = m.Normals
	}

	if len(m.TexCoords) > 0 {
		uv := UVLayer{Name: UVLayerName, Data: make([][2]float32, 0, data.LoopCount())}
		for _, tri := range m.Indices {
			for _, v := range tri {
				uv.Data = append(uv.Data, m.TexCoords[v])
			}
		}
		data.UVLayers = append(data.UVLayers, uv)
	}

	if len(m.Colors) > 0 {
		col := ColorLayer{Name: ColorLayerName, Data: make([][4]float32, 0, data.LoopCount())}
		for _, tri := range m.Indices {
			for _, v := range tri {
				c := m.Colors[v]
				col.Data = append(col.Data, [4]float32{
					float32(c[0]) / 255,
					float32(c[1]) / 255,
					float32(c[2]) / 255,
					float32(c[3]) / 255,
				})
			}
		}
		data.ColorLayers = append(data.ColorLayers, col)
	}

	for _, matName := range m.Materials {
		if matName == "" {
			data.Materials = append(data.Materials, nil)
			continue
		}
		data.Materials = append(data.Materials, t.material(matName))
	}

	if len(m.MorphTargets) > 0 {
		data.ShapeKeys = append(data.ShapeKeys, ShapeKey{
			Name:          BasisShapeKey,
			Interpolation: "KEY_LINEAR",
			Positions:     clonePositions(m.Vertices),
		})
		for _, morph := range m.MorphTargets {
			key := ShapeKey{
				Name:          morph.Name,
				Interpolation: "KEY_LINEAR",
				Positions:     clonePositions(m.Vertices),
			}
			for _, d := range morph.Deltas {
				p := &key.Positions[d.VertexIndex]
				p[0] += d.Position[0]
				p[1] += d.Position[1]
				p[2] += d.Position[2]
			}
			data.ShapeKeys = append(data.ShapeKeys, key)
		}
	}

	return data
}

// vertexGroups creates one group per weighted bone. Repeated weights for
// the same bone and vertex add up.
func (t *txn) vertexGroups(obj *Object, m *formats.Mesh) {
	if len(m.Weights) == 0 || len(m.Bones) == 0 {
		return
	}
	for _, w := range m.Weights {
		name := m.Bones[w.BoneIndex].Name
		g := obj.VertexGroup(name)
		if g == nil {
			g = &VertexGroup{Name: name, Weights: make(map[int32]float32)}
			obj.VertexGroups = append(obj.VertexGroups, g)
		}
		g.Weights[w.VertexIndex] += w.Weight
	}
}

func clonePositions(src [][3]float32) [][3]float32 {
	out := make([][3]float32, len(src))
	copy(out, src)
	return out
}

func computeBounds(positions [][3]float32) Bounds {
	if len(positions) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: positions[0], Max: positions[0]}
	for _, p := range positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < b.Min[i] {
				b.Min[i] = p[i]
			}
			if p[i] > b.Max[i] {
				b.Max[i] = p[i]
			}
		}
	}
	return b
}
