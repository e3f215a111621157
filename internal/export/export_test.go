package export

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Faultbox/ueformat/internal/scene"
	"github.com/Faultbox/ueformat/pkg/formats"
	"github.com/Faultbox/ueformat/pkg/formats/formatstest"
)

func testScene(t *testing.T) *scene.Scene {
	t.Helper()
	mesh := formatstest.Triangle()
	mesh.Materials = []string{"M_Body", ""}
	mesh.Bones = []formatstest.Bone{
		{Name: "root", Parent: -1, Rotation: [4]float32{0, 0, 0, 1}},
		{Name: "arm", Parent: 0, Position: [3]float32{0, 0, 100}, Rotation: [4]float32{0, 0, 0, 1}},
	}
	mesh.Weights = []formatstest.Weight{
		{Bone: 1, Vertex: 2, Weight: 0.5},
		{Bone: 1, Vertex: 0, Weight: 0.25},
	}
	mesh.Sockets = []formatstest.Socket{{Name: "grip", Parent: "arm", Scale: [3]float32{1, 1, 1}}}
	mesh.Morphs = []formatstest.Morph{{Name: "Bulge", Deltas: []formatstest.MorphDelta{{Position: [3]float32{0, 0, 1}, Vertex: 0}}}}

	obj, err := formats.Decode(mesh.Envelope("SK_Arm", ""))
	if err != nil {
		t.Fatal(err)
	}
	s, err := scene.Materialize(obj, scene.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFromScene(t *testing.T) {
	doc := FromScene(testScene(t))

	if len(doc.Objects) != 2 || len(doc.Meshes) != 1 {
		t.Fatalf("document has %d objects, %d meshes", len(doc.Objects), len(doc.Meshes))
	}

	meshObj := doc.Objects[0]
	if meshObj.Name != "SK_Arm_MESH" || meshObj.Parent != "SK_Arm" {
		t.Errorf("mesh object = %q parent %q", meshObj.Name, meshObj.Parent)
	}
	if meshObj.Mesh == nil || *meshObj.Mesh != 0 {
		t.Error("mesh object should reference mesh 0")
	}
	if len(meshObj.VertexGroups) != 1 {
		t.Fatalf("vertex groups = %+v", meshObj.VertexGroups)
	}
	wantWeights := []VertexWeight{{Vertex: 0, Weight: 0.25}, {Vertex: 2, Weight: 0.5}}
	if !reflect.DeepEqual(meshObj.VertexGroups[0].Weights, wantWeights) {
		t.Errorf("weights = %+v, want sorted by vertex", meshObj.VertexGroups[0].Weights)
	}
	if len(meshObj.Modifiers) != 1 || meshObj.Modifiers[0].Object != "SK_Arm" || meshObj.Modifiers[0].Kind != "ARMATURE" {
		t.Errorf("modifiers = %+v", meshObj.Modifiers)
	}

	arm := doc.Objects[1].Armature
	if arm == nil || len(arm.Bones) != 3 {
		t.Fatalf("armature = %+v", arm)
	}
	if arm.Bones[1].Parent != "root" || arm.Bones[1].Matrix[2][3] != 1 {
		t.Errorf("arm bone = %+v, want translation 1 on Z in row-major matrix", arm.Bones[1])
	}
	if !arm.Bones[2].Socket || arm.Bones[2].Group != scene.GroupSockets {
		t.Errorf("socket = %+v", arm.Bones[2])
	}

	m := doc.Meshes[0]
	if !reflect.DeepEqual(m.Materials, []string{"M_Body", ""}) {
		t.Errorf("material slots = %q", m.Materials)
	}
	if len(m.ShapeKeys) != 2 || m.ShapeKeys[1].Name != "Bulge" {
		t.Errorf("shape keys = %+v", m.ShapeKeys)
	}
	if doc.Stats.Bones != 2 || doc.Stats.Sockets != 1 {
		t.Errorf("stats = %+v", doc.Stats)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"yaml", FormatYAML, false},
		{"YML", FormatYAML, false},
		{"cbor", FormatCBOR, false},
		{"json", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("ParseFormat(%q) error = %v, want ErrUnknownFormat", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteRead(t *testing.T) {
	doc := FromScene(testScene(t))

	for _, f := range []Format{FormatYAML, FormatCBOR} {
		t.Run(string(f), func(t *testing.T) {
			data, err := Encode(f, doc)
			if err != nil {
				t.Fatal(err)
			}
			got, err := Read(bytes.NewReader(data), f)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, doc) {
				t.Errorf("document changed after %s round trip", f)
			}
		})
	}
}

func TestWriteYAML_Readable(t *testing.T) {
	data, err := Encode(FormatYAML, FromScene(testScene(t)))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"name: SK_Arm_MESH", "vertex_groups:", "shape_keys:", "group: Sockets"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q", want)
		}
	}
}

func TestWriteCBOR_Deterministic(t *testing.T) {
	a, err := Encode(FormatCBOR, FromScene(testScene(t)))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(FormatCBOR, FromScene(testScene(t)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("CBOR output differs between identical scenes")
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Format("xml"), &Document{}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("got %v, want ErrUnknownFormat", err)
	}
}
