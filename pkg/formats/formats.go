// Package formats decodes UNREALFORMAT containers exported from Unreal
// Engine assets: meshes (UMODEL) and worlds of placed meshes (UWORLD).
//
// A container is an envelope (magic, kind, version, name, optional
// GZIP/ZSTD compression) around a flat stream of named, length-prefixed
// chunks. Unknown chunks are skipped by length. Positions are converted
// from centimeters to meters on read.
package formats

// UnitScale converts source units (centimeters) to meters.
const UnitScale = 0.01
