package stages

import (
	"reality-studio-backend/internal/generator"
	"reality-studio-backend/internal/store"
)

// Set bundles one instance of every stage. The orchestrator and render
// service call the typed methods; the bot endpoints go through Registry.
type Set struct {
	Concept    *ConceptStage
	Characters *CharacterStage
	Script     *ScriptStage
	Hook       *HookStage
	Cultural   *CulturalStage
	Director   *DirectorStage
	Scenes     *SceneStage
	Images     *ImageStage
	Voice      *VoiceStage
	Frames     FrameOptimizer
	AudioSync  AudioSync
	Color      ColorGrader
	Effects    EffectsBot
	Master     AudioMaster
	Quality    QualityEnhancer
	Composer   *Composer
}

func NewSet(text generator.TextGenerator, images generator.ImageGenerator, speech generator.SpeechGenerator,
	media store.MediaStore, defaultVoice string) *Set {
	return &Set{
		Concept:    NewConceptStage(text),
		Characters: NewCharacterStage(text),
		Script:     NewScriptStage(text),
		Hook:       NewHookStage(text),
		Cultural:   NewCulturalStage(text),
		Director:   NewDirectorStage(text),
		Scenes:     NewSceneStage(text),
		Images:     NewImageStage(images, media),
		Voice:      NewVoiceStage(speech, media, defaultVoice),
		Composer:   NewComposer(),
	}
}

func (s *Set) Registry() (*Registry, error) {
	return NewRegistry(
		s.Concept, s.Characters, s.Script, s.Hook, s.Cultural, s.Director,
		s.Scenes, s.Images, s.Voice, s.Frames, s.AudioSync, s.Color,
		s.Effects, s.Master, s.Quality, s.Composer,
	)
}
