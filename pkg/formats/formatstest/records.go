package formatstest

// Values below are in source units (centimeters, degrees) as an exporter
// writes them.

// Bone is a BONES element.
type Bone struct {
	Name     string
	Parent   int32
	Position [3]float32
	Rotation [4]float32 // X, Y, Z, W
}

// Weight is a WEIGHTS element.
type Weight struct {
	Bone   int16
	Vertex int32
	Weight float32
}

// MorphDelta is one delta inside a MORPHTARGETS element.
type MorphDelta struct {
	Position [3]float32
	Normal   [3]float32
	Vertex   int32
}

// Morph is a MORPHTARGETS element.
type Morph struct {
	Name   string
	Deltas []MorphDelta
}

// Socket is a SOCKETS element.
type Socket struct {
	Name     string
	Parent   string
	Position [3]float32
	Rotation [3]float32
	Scale    [3]float32
}

// Mesh describes a UMODEL body. Empty sections are not written.
type Mesh struct {
	Vertices  [][3]float32
	Indices   []uint32 // Flat, three per triangle
	Normals   [][3]float32
	Tangents  [][3]float32
	Colors    [][4]uint8
	TexCoords [][2]float32
	Materials []string
	Bones     []Bone
	Weights   []Weight
	Morphs    []Morph
	Sockets   []Socket
}

// Body returns the chunk stream for m.
func (m Mesh) Body() []byte {
	var out Writer

	vec3s := func(name string, vs [][3]float32) {
		if len(vs) == 0 {
			return
		}
		var w Writer
		for _, v := range vs {
			w.Floats(v[:]...)
		}
		out.Raw(Chunk(name, int32(len(vs)), w.Bytes()))
	}

	vec3s("VERTICES", m.Vertices)
	vec3s("NORMALS", m.Normals)
	vec3s("TANGENTS", m.Tangents)

	if len(m.TexCoords) > 0 {
		var w Writer
		for _, uv := range m.TexCoords {
			w.Floats(uv[:]...)
		}
		out.Raw(Chunk("TEXCOORDS", int32(len(m.TexCoords)), w.Bytes()))
	}

	if len(m.Indices) > 0 {
		var w Writer
		for _, idx := range m.Indices {
			w.Uint32(idx)
		}
		out.Raw(Chunk("INDICES", int32(len(m.Indices)), w.Bytes()))
	}

	if len(m.Colors) > 0 {
		var w Writer
		for _, c := range m.Colors {
			w.Raw(c[:])
		}
		out.Raw(Chunk("VERTEXCOLORS", int32(len(m.Colors)), w.Bytes()))
	}

	if len(m.Materials) > 0 {
		var w Writer
		for _, name := range m.Materials {
			w.FString(name)
		}
		out.Raw(Chunk("MATERIALS", int32(len(m.Materials)), w.Bytes()))
	}

	if len(m.Weights) > 0 {
		var w Writer
		for _, wt := range m.Weights {
			w.Int16(wt.Bone).Int32(wt.Vertex).Floats(wt.Weight)
		}
		out.Raw(Chunk("WEIGHTS", int32(len(m.Weights)), w.Bytes()))
	}

	if len(m.Morphs) > 0 {
		var w Writer
		for _, mt := range m.Morphs {
			w.FString(mt.Name).Int32(int32(len(mt.Deltas)))
			for _, d := range mt.Deltas {
				w.Floats(d.Position[:]...).Floats(d.Normal[:]...).Int32(d.Vertex)
			}
		}
		out.Raw(Chunk("MORPHTARGETS", int32(len(m.Morphs)), w.Bytes()))
	}

	if len(m.Bones) > 0 {
		var w Writer
		for _, b := range m.Bones {
			w.FString(b.Name).Int32(b.Parent).Floats(b.Position[:]...).Floats(b.Rotation[:]...)
		}
		out.Raw(Chunk("BONES", int32(len(m.Bones)), w.Bytes()))
	}

	if len(m.Sockets) > 0 {
		var w Writer
		for _, s := range m.Sockets {
			w.FString(s.Name).FString(s.Parent).
				Floats(s.Position[:]...).Floats(s.Rotation[:]...).Floats(s.Scale[:]...)
		}
		out.Raw(Chunk("SOCKETS", int32(len(m.Sockets)), w.Bytes()))
	}

	return out.Bytes()
}

// Envelope returns m wrapped as a UMODEL container.
func (m Mesh) Envelope(name, compression string) []byte {
	return Envelope("UMODEL", 1, name, compression, m.Body())
}

// HashedMesh is a MESHES element.
type HashedMesh struct {
	Hash int32
	Data []byte
}

// Actor is an ACTORS element.
type Actor struct {
	Hash     int32
	Name     string
	Position [3]float32
	Rotation [3]float32
	Scale    [3]float32
}

// World describes a UWORLD body.
type World struct {
	Meshes []HashedMesh
	Actors []Actor
}

// Body returns the chunk stream for w.
func (w World) Body() []byte {
	var out Writer

	var meshes Writer
	for _, m := range w.Meshes {
		meshes.Int32(m.Hash).Int32(int32(len(m.Data))).Raw(m.Data)
	}
	out.Raw(Chunk("MESHES", int32(len(w.Meshes)), meshes.Bytes()))

	var actors Writer
	for _, a := range w.Actors {
		actors.Int32(a.Hash).FString(a.Name).
			Floats(a.Position[:]...).Floats(a.Rotation[:]...).Floats(a.Scale[:]...)
	}
	out.Raw(Chunk("ACTORS", int32(len(w.Actors)), actors.Bytes()))

	return out.Bytes()
}

// Envelope returns w wrapped as a UWORLD container.
func (w World) Envelope(name, compression string) []byte {
	return Envelope("UWORLD", 1, name, compression, w.Body())
}

// Triangle returns a minimal one-triangle mesh with normals and UVs.
func Triangle() Mesh {
	return Mesh{
		Vertices:  [][3]float32{{0, 0, 0}, {100, 0, 0}, {0, 100, 0}},
		Indices:   []uint32{0, 1, 2},
		Normals:   [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		TexCoords: [][2]float32{{0, 0}, {1, 0}, {0, 1}},
		Materials: []string{"M_Default"},
	}
}
