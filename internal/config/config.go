// Package config loads slice-parameter files for the command line tools and
// sets up their logging.
package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/DisposaBoy/JsonConfigReader"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v3"

	"github.com/deepteams/hevc"
)

// ErrInvalidConfig is returned by Params for values that do not describe a
// slice.
var ErrInvalidConfig = errors.New("config: invalid slice configuration")

// SliceConfig is the file form of hevc.SliceParams.
type SliceConfig struct {
	// Slice
	SliceType     string `json:"sliceType"                 yaml:"slice_type"`
	CABACInitFlag bool   `json:"cabacInitFlag"             yaml:"cabac_init_flag"`
	QP            int    `json:"qp"                        yaml:"qp"`

	// Residual coding tools
	SignDataHiding       bool `json:"signDataHiding"            yaml:"sign_data_hiding"`
	PersistentRice       bool `json:"persistentRiceAdaptation"  yaml:"persistent_rice_adaptation"`
	TransformSkipContext bool `json:"transformSkipContext"      yaml:"transform_skip_context"`
	ImplicitRDPCM        bool `json:"implicitRdpcm"             yaml:"implicit_rdpcm"`

	// Dequantization
	BitDepthLuma      int    `json:"bitDepthLuma"              yaml:"bit_depth_luma"`
	BitDepthChroma    int    `json:"bitDepthChroma"            yaml:"bit_depth_chroma"`
	ChromaFormat      string `json:"chromaFormat"              yaml:"chroma_format"`
	ExtendedPrecision bool   `json:"extendedPrecision"         yaml:"extended_precision"`
	ScalingList       string `json:"scalingList"               yaml:"scaling_list"`
	CbQPOffset        int    `json:"cbQpOffset"                yaml:"cb_qp_offset"`
	CrQPOffset        int    `json:"crQpOffset"                yaml:"cr_qp_offset"`

	// Logging
	LogLevel  string `json:"logLevel"                  yaml:"log_level"`
	LogFormat string `json:"logFormat"                 yaml:"log_format"`
}

// DefaultSlice is an 8-bit 4:2:0 intra slice at QP 26.
var DefaultSlice = SliceConfig{
	SliceType:      "I",
	QP:             26,
	BitDepthLuma:   8,
	BitDepthChroma: 8,
	ChromaFormat:   "420",
	LogLevel:       "info",
	LogFormat:      "default",
}

// LoadSlice reads filename into cfg. The file is JSON, which may carry
// comments, or YAML. Fields missing from the file keep their value in cfg;
// cfg is left unchanged when the file is neither.
func LoadSlice(filename string, cfg *SliceConfig) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	// Each attempt decodes into its own copy so that a partial JSON decode
	// does not leak into the YAML result.
	loaded := *cfg
	decJSON := json.NewDecoder(JsonConfigReader.New(f))
	if err = decJSON.Decode(&loaded); err != nil {
		_, _ = f.Seek(0, 0)
		loaded = *cfg
		decYAML := yaml.NewDecoder(f)
		if err2 := decYAML.Decode(&loaded); err2 != nil {
			return errors.Wrapf(errors.Errorf("invalid yaml (%s) or json (%s)", err2, err), "loading %s", filename)
		}
	}
	*cfg = loaded
	return nil
}

// SaveSlice writes cfg to filename as indented JSON.
func SaveSlice(filename string, cfg *SliceConfig) error {
	encoded, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, encoded, 0644)
}

var sliceTypes = map[string]hevc.SliceType{
	"B": hevc.SliceB,
	"P": hevc.SliceP,
	"I": hevc.SliceI,
}

var chromaFormats = map[string]hevc.ChromaFormat{
	"400": hevc.Chroma400,
	"420": hevc.Chroma420,
	"422": hevc.Chroma422,
	"444": hevc.Chroma444,
}

// Params converts the configuration into validated slice parameters.
func (c *SliceConfig) Params() (*hevc.SliceParams, error) {
	st, ok := sliceTypes[strings.ToUpper(c.SliceType)]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidConfig, "slice type %q", c.SliceType)
	}
	cf, ok := chromaFormats[c.ChromaFormat]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidConfig, "chroma format %q", c.ChromaFormat)
	}

	p := &hevc.SliceParams{
		SliceType:            st,
		CABACInitFlag:        c.CABACInitFlag,
		QP:                   c.QP,
		SignDataHiding:       c.SignDataHiding,
		PersistentRice:       c.PersistentRice,
		TransformSkipContext: c.TransformSkipContext,
		ImplicitRDPCM:        c.ImplicitRDPCM,
		Quant: hevc.QuantConfig{
			BitDepthLuma:      c.BitDepthLuma,
			BitDepthChroma:    c.BitDepthChroma,
			ChromaFormat:      cf,
			ExtendedPrecision: c.ExtendedPrecision,
			CbQPOffset:        c.CbQPOffset,
			CrQPOffset:        c.CrQPOffset,
		},
	}
	switch strings.ToLower(c.ScalingList) {
	case "", "off":
	case "default":
		p.Quant.Scaling = hevc.NewScalingMatrices(hevc.DefaultScalingList())
	default:
		return nil, errors.Wrapf(ErrInvalidConfig, "scaling list %q", c.ScalingList)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
