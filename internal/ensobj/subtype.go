package ensobj

// subtypeRule describes a polymorphic base class: the enum naming its
// discriminator attribute and the attribute-value to concrete-class map.
type subtypeRule struct {
	discriminator string
	values        map[int64]string
}

// subtypeRules covers the three base classes the engine reports for
// objects that are really one of several concrete subtypes. Values track
// the engine's own numbering; gaps are real.
var subtypeRules = map[string]subtypeRule{
	"ENS_PART": {
		discriminator: "PARTTYPE",
		values: map[int64]string{
			0:  "ENS_PART_MODEL",
			1:  "ENS_PART_CLIP",
			2:  "ENS_PART_CONTOUR",
			3:  "ENS_PART_DISCRETE_PARTICLE",
			4:  "ENS_PART_FRAME",
			5:  "ENS_PART_ISOSURFACE",
			6:  "ENS_PART_PARTICLE_TRACE",
			7:  "ENS_PART_PROFILE",
			8:  "ENS_PART_VECTOR_ARROW",
			9:  "ENS_PART_ELEVATED_SURFACE",
			10: "ENS_PART_DEVELOPED_SURFACE",
			15: "ENS_PART_BUILTUP",
			16: "ENS_PART_TENSOR_GLYPH",
			17: "ENS_PART_FX_VORTEX_CORE",
			18: "ENS_PART_FX_SHOCK",
			19: "ENS_PART_FX_SEP_ATT",
			20: "ENS_PART_MAT_INTERFACE",
			21: "ENS_PART_POINT",
			22: "ENS_PART_AXISYMMETRIC",
			24: "ENS_PART_VOF",
			25: "ENS_PART_AUX_GEOM",
			26: "ENS_PART_FILTER",
		},
	},
	"ENS_ANNOT": {
		discriminator: "ANNOTTYPE",
		values: map[int64]string{
			0: "ENS_ANNOT_TEXT",
			1: "ENS_ANNOT_LINE",
			2: "ENS_ANNOT_LOGO",
			3: "ENS_ANNOT_LGND",
			4: "ENS_ANNOT_MARKER",
			5: "ENS_ANNOT_ARROW",
			6: "ENS_ANNOT_DIAL",
			7: "ENS_ANNOT_GAUGE",
			8: "ENS_ANNOT_SHAPE",
		},
	},
	"ENS_TOOL": {
		discriminator: "TOOLTYPE",
		values: map[int64]string{
			0: "ENS_TOOL_CURSOR",
			1: "ENS_TOOL_LINE",
			2: "ENS_TOOL_PLANE",
			3: "ENS_TOOL_BOX",
			4: "ENS_TOOL_CYLINDER",
			5: "ENS_TOOL_CONE",
			6: "ENS_TOOL_SPHERE",
			7: "ENS_TOOL_REVOLUTION",
		},
	},
}
