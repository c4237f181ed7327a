package stages

import (
	"context"
	"encoding/json"
	"strings"

	"reality-studio-backend/internal/models"
)

// ColorGrade is a look-up of grading parameters per visual mood.
type ColorGrade struct {
	Look        string  `json:"look"`
	LUT         string  `json:"lut"`
	Contrast    float64 `json:"contrast"`
	Saturation  float64 `json:"saturation"`
	Temperature int     `json:"temperature"`
	Vignette    float64 `json:"vignette"`
}

var colorGrades = map[string]ColorGrade{
	"dramatic": {Look: "dramatic", LUT: "teal-orange", Contrast: 1.25, Saturation: 1.1, Temperature: 5200, Vignette: 0.35},
	"warm":     {Look: "warm", LUT: "golden-hour", Contrast: 1.05, Saturation: 1.15, Temperature: 6200, Vignette: 0.15},
	"cool":     {Look: "cool", LUT: "arctic", Contrast: 1.1, Saturation: 0.9, Temperature: 4300, Vignette: 0.2},
	"noir":     {Look: "noir", LUT: "mono-contrast", Contrast: 1.4, Saturation: 0, Temperature: 5000, Vignette: 0.5},
	"vibrant":  {Look: "vibrant", LUT: "pop", Contrast: 1.15, Saturation: 1.35, Temperature: 5600, Vignette: 0.1},
}

var neutralGrade = ColorGrade{Look: "neutral", LUT: "rec709", Contrast: 1, Saturation: 1, Temperature: 5600}

// ColorGrader resolves a grade for a mood.
type ColorGrader struct{}

type ColorGradeRequest struct {
	Mood   string         `json:"mood"`
	Scenes []models.Scene `json:"scenes,omitempty"`
}

type SceneGrade struct {
	SceneNumber int        `json:"scene_number"`
	Grade       ColorGrade `json:"grade"`
}

type ColorGradeResult struct {
	Grade  ColorGrade   `json:"grade"`
	Scenes []SceneGrade `json:"scenes"`
}

func (ColorGrader) Kind() Kind { return KindColorGrade }

// GradeFor returns the grade for mood, or neutral for unknown moods.
func GradeFor(mood string) ColorGrade {
	if g, ok := colorGrades[strings.ToLower(strings.TrimSpace(mood))]; ok {
		return g
	}
	return neutralGrade
}

func (ColorGrader) Grade(req ColorGradeRequest) (*ColorGradeResult, error) {
	base := GradeFor(req.Mood)
	scenes := make([]SceneGrade, 0, len(req.Scenes))
	for _, sc := range req.Scenes {
		g := base
		if sc.Emotion != "" {
			if per, ok := colorGrades[strings.ToLower(sc.Emotion)]; ok {
				g = per
			}
		}
		scenes = append(scenes, SceneGrade{SceneNumber: sc.SceneNumber, Grade: g})
	}
	return &ColorGradeResult{Grade: base, Scenes: scenes}, nil
}

func (c ColorGrader) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, func(_ context.Context, req ColorGradeRequest) (*ColorGradeResult, error) {
		return c.Grade(req)
	})
}

var sceneEffects = map[string][]string{
	SceneConfrontation: {"camera-shake", "zoom-punch", "red-flash"},
	SceneConfessional:  {"soft-focus", "letterbox", "lower-third"},
	SceneGroupDrama:    {"split-screen", "whip-pan"},
	SceneWalkOff:       {"slow-motion", "motion-blur"},
	SceneEntrance:      {"light-leak", "freeze-frame-intro"},
	SceneGeneral:       {"ken-burns"},
}

// EffectsBot assigns overlay effects per scene and the cuts between them.
type EffectsBot struct{}

type EffectsRequest struct {
	Scenes []models.Scene `json:"scenes"`
}

type SceneEffects struct {
	SceneNumber int      `json:"scene_number"`
	SceneType   string   `json:"scene_type"`
	Effects     []string `json:"effects"`
}

type EffectsResult struct {
	Scenes      []SceneEffects `json:"scenes"`
	Transitions []Transition   `json:"transitions"`
}

func (EffectsBot) Kind() Kind { return KindEffects }

func (EffectsBot) Apply(req EffectsRequest) (*EffectsResult, error) {
	if len(req.Scenes) == 0 {
		return nil, invalid("scenes are required")
	}
	out := make([]SceneEffects, 0, len(req.Scenes))
	for _, sc := range req.Scenes {
		t := normalizeSceneType(sc.SceneType)
		out = append(out, SceneEffects{
			SceneNumber: sc.SceneNumber,
			SceneType:   t,
			Effects:     append([]string{}, sceneEffects[t]...),
		})
	}
	return &EffectsResult{Scenes: out, Transitions: Transitions(req.Scenes)}, nil
}

func (e EffectsBot) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, func(_ context.Context, req EffectsRequest) (*EffectsResult, error) {
		return e.Apply(req)
	})
}

type EQBand struct {
	Name      string  `json:"name"`
	Frequency float64 `json:"frequency_hz"`
	GainDB    float64 `json:"gain_db"`
}

type Compressor struct {
	ThresholdDB float64 `json:"threshold_db"`
	Ratio       float64 `json:"ratio"`
}

// MasteringChain is the fixed broadcast loudness chain (EBU R128).
type MasteringChain struct {
	TargetLUFS   float64    `json:"target_lufs"`
	TruePeakDB   float64    `json:"true_peak_db"`
	Compressor   Compressor `json:"compressor"`
	EQ           []EQBand   `json:"eq"`
	FFmpegFilter string     `json:"ffmpeg_filter"`
}

// Mastering returns a fresh copy of the mastering chain.
func Mastering() MasteringChain {
	return MasteringChain{
		TargetLUFS: -16,
		TruePeakDB: -0.1,
		Compressor: Compressor{ThresholdDB: -18, Ratio: 4},
		EQ: []EQBand{
			{Name: "bass", Frequency: 80, GainDB: 2},
			{Name: "mud", Frequency: 250, GainDB: -2},
			{Name: "presence", Frequency: 3000, GainDB: 3},
			{Name: "harshness", Frequency: 5000, GainDB: -1.5},
			{Name: "air", Frequency: 10000, GainDB: 2},
		},
		FFmpegFilter: "equalizer=f=80:g=2,equalizer=f=250:g=-2,equalizer=f=3000:g=3," +
			"equalizer=f=5000:g=-1.5,equalizer=f=10000:g=2," +
			"acompressor=threshold=-18dB:ratio=4,loudnorm=I=-16:TP=-0.1",
	}
}

// AudioMaster reports the mastering chain for a set of tracks.
type AudioMaster struct{}

type AudioMasterRequest struct {
	Tracks []string `json:"tracks"`
}

type AudioMasterResult struct {
	Tracks []string       `json:"tracks"`
	Chain  MasteringChain `json:"chain"`
}

func (AudioMaster) Kind() Kind { return KindAudioMaster }

func (AudioMaster) Master(req AudioMasterRequest) (*AudioMasterResult, error) {
	if len(req.Tracks) == 0 {
		return nil, invalid("tracks are required")
	}
	return &AudioMasterResult{Tracks: append([]string{}, req.Tracks...), Chain: Mastering()}, nil
}

func (a AudioMaster) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, func(_ context.Context, req AudioMasterRequest) (*AudioMasterResult, error) {
		return a.Master(req)
	})
}

const (
	QualityUltra     = "ultra"
	QualityPremium   = "premium"
	QualityBroadcast = "broadcast"
)

// EncodingPreset is one fixed row of the quality table.
type EncodingPreset struct {
	Quality        string `json:"quality"`
	CRF            int    `json:"crf"`
	BitrateKbps    int    `json:"bitrate_kbps"`
	MaxBitrateKbps int    `json:"max_bitrate_kbps"`
	Preset         string `json:"preset"`
}

var encodingPresets = map[string]EncodingPreset{
	QualityUltra:     {Quality: QualityUltra, CRF: 18, BitrateKbps: 8000, MaxBitrateKbps: 10000, Preset: "slow"},
	QualityPremium:   {Quality: QualityPremium, CRF: 21, BitrateKbps: 6000, MaxBitrateKbps: 6000, Preset: "medium"},
	QualityBroadcast: {Quality: QualityBroadcast, CRF: 23, BitrateKbps: 4000, MaxBitrateKbps: 4000, Preset: "fast"},
}

// PresetFor returns the encoding row for quality.
func PresetFor(quality string) (EncodingPreset, error) {
	p, ok := encodingPresets[strings.ToLower(strings.TrimSpace(quality))]
	if !ok {
		return EncodingPreset{}, invalid("unknown quality %q", quality)
	}
	return p, nil
}

// QualityEnhancer resolves encoding parameters for a render.
type QualityEnhancer struct{}

type QualityRequest struct {
	Quality string `json:"quality"`
}

type QualityResult struct {
	Encoding EncodingPreset `json:"encoding"`
}

func (QualityEnhancer) Kind() Kind { return KindQuality }

func (QualityEnhancer) Enhance(req QualityRequest) (*QualityResult, error) {
	if req.Quality == "" {
		req.Quality = QualityBroadcast
	}
	p, err := PresetFor(req.Quality)
	if err != nil {
		return nil, err
	}
	return &QualityResult{Encoding: p}, nil
}

func (q QualityEnhancer) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, func(_ context.Context, req QualityRequest) (*QualityResult, error) {
		return q.Enhance(req)
	})
}
