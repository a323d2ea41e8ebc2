package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jywlabs/scriptwiz/internal/catalog"
	"github.com/jywlabs/scriptwiz/internal/config"
	"github.com/jywlabs/scriptwiz/internal/llm"
	"github.com/jywlabs/scriptwiz/internal/prompt"
	"github.com/jywlabs/scriptwiz/internal/session"
)

// Call-site defaults, used when the prompt entry has no parameters.
const (
	outlineTemperature     = 0.7
	outlineMaxTokens       = 1500
	scoreTemperature       = 0.5
	scoreMaxTokens         = 1000
	scriptTemperature      = 0.7
	scriptMaxTokens        = 3000
	storyboardTemperature  = 0.6
	storyboardMaxTokens    = 2500
	metadataTemperature    = 0.7
	metadataMaxTokens      = 1500
	imagePromptTemperature = 0.7
	imagePromptMaxTokens   = 300
	translationTemperature = 0.4
	translationMaxTokens   = 65536
)

// InputError is a rejected user input.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Result describes the outcome of an operation.
type Result struct {
	Stage    Stage         `json:"stage"`
	Text     string        `json:"text,omitempty"`
	Model    string        `json:"model,omitempty"`
	Usage    llm.Usage     `json:"usage"`
	Duration time.Duration `json:"duration,omitempty"`
	Notices  []string      `json:"notices,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Next     []Stage       `json:"next,omitempty"`
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Wizard runs stage operations against a session. It holds no session state
// itself, so one Wizard can serve many sessions.
type Wizard struct {
	Catalog *catalog.Catalog
	Invoker llm.Invoker

	Columns        config.Columns
	SourceLanguage string
	Languages      []string
}

// New creates a wizard from the loaded configuration.
func New(c *catalog.Catalog, inv llm.Invoker, cfg *config.Config) *Wizard {
	return &Wizard{
		Catalog:        c,
		Invoker:        inv,
		Columns:        cfg.Columns,
		SourceLanguage: cfg.Translation.SourceLanguage,
		Languages:      cfg.Translation.Languages,
	}
}

// call is one model invocation for a stage.
type call struct {
	stage       Stage
	task        string
	vars        prompt.Vars
	temperature float64
	maxTokens   int
	image       *llm.Image
}

// invoke resolves the prompt, records the request and calls the model. The
// request is recorded even when the template could not be filled, so the
// user can inspect it.
func (w *Wizard) invoke(ctx context.Context, sess *session.Session, c call, res *Result) (*llm.Response, error) {
	model := sess.API.Model
	log := logrus.WithFields(logrus.Fields{
		"session": sess.ID,
		"stage":   c.stage,
		"task":    c.task,
		"model":   model,
	})

	resolved, err := prompt.Resolve(w.Catalog, c.task, model, c.vars)
	if resolved != nil {
		res.Notices = append(res.Notices, resolved.Notices...)
		rec := session.RequestRecord{
			Task:         c.task,
			Model:        model,
			EntryKey:     resolved.EntryKey,
			FallbackFrom: resolved.FallbackFrom,
			System:       resolved.System,
			User:         resolved.UserText(),
			Template:     resolved.Template,
			Params:       resolved.Params,
			Temperature:  resolved.Params.Float("temperature", c.temperature),
			MaxTokens:    resolved.Params.Int("max_tokens", c.maxTokens),
			At:           time.Now(),
		}
		if c.image != nil {
			rec.Image = c.image.Name
		}
		sess.RecordRequest(rec)
	}
	if err != nil {
		log.WithError(err).Warn("prompt resolution failed")
		return nil, err
	}

	req := llm.Request{
		Task:        c.task,
		Model:       model,
		BaseURL:     sess.API.BaseURL,
		APIKey:      sess.API.APIKey,
		System:      resolved.System,
		User:        resolved.UserText(),
		Image:       c.image,
		Temperature: resolved.Params.Float("temperature", c.temperature),
		MaxTokens:   resolved.Params.Int("max_tokens", c.maxTokens),
	}
	if warning := llm.MultimodalWarning(req); warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}

	log.Debug("invoking model")
	start := time.Now()
	resp, err := w.Invoker.Invoke(ctx, req)
	if err != nil {
		log.WithError(err).WithField("kind", llm.KindOf(err)).Warn("model call failed")
		return nil, err
	}
	if resp == nil {
		return nil, &llm.Error{Kind: llm.KindUnknown, Message: "provider returned no response"}
	}

	res.Text = resp.Text
	res.Model = resp.Model
	if res.Model == "" {
		res.Model = model
	}
	res.Usage = resp.Usage
	res.Duration = resp.Duration
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	log.WithField("total_tokens", resp.Usage.TotalTokens).Info("stage output received")
	return resp, nil
}

// APIInput is the configuration stage input.
type APIInput struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// Configure validates and stores the provider connection. The session is
// only changed when the input is complete.
func (w *Wizard) Configure(sess *session.Session, in APIInput) (*Result, error) {
	res := &Result{Stage: StageConfiguration}

	in.Provider = strings.TrimSpace(in.Provider)
	in.APIKey = strings.TrimSpace(in.APIKey)
	in.BaseURL = strings.TrimSpace(in.BaseURL)
	in.Model = strings.TrimSpace(in.Model)

	provider, known := w.Catalog.Provider(in.Provider)
	if !known && len(w.Catalog.Providers) > 0 {
		names := make([]string, len(w.Catalog.Providers))
		for i, p := range w.Catalog.Providers {
			names[i] = p.Name
		}
		return nil, &InputError{Field: "provider", Message: fmt.Sprintf("unknown provider %q (available: %s)", in.Provider, strings.Join(names, ", "))}
	}
	if known {
		in.Provider = provider.Name
		if in.BaseURL == "" {
			in.BaseURL = provider.BaseURLTemplate
		}
	}

	if in.APIKey == "" {
		return nil, &InputError{Field: "apiKey", Message: "an API key is required"}
	}
	if in.BaseURL == "" {
		return nil, &InputError{Field: "baseUrl", Message: "a base URL is required for this provider"}
	}
	if known && provider.HasModels() {
		if in.Model == "" {
			return nil, &InputError{Field: "model", Message: fmt.Sprintf("choose a model (available: %s)", strings.Join(provider.Models, ", "))}
		}
		if !contains(provider.Models, in.Model) {
			res.warn("Model %q is not in the %s model list; using it anyway.", in.Model, provider.Name)
		}
	}

	sess.API = session.APIConfig{
		Provider:   in.Provider,
		APIKey:     in.APIKey,
		BaseURL:    in.BaseURL,
		Model:      in.Model,
		Configured: true,
	}
	sess.Touch()
	res.Next = StageConfiguration.Next()
	logrus.WithFields(logrus.Fields{"session": sess.ID, "provider": in.Provider, "model": in.Model}).Info("API configured")
	return res, nil
}

// GenerateOutline creates the outline for a topic. It replaces the outline
// and clears the outline feedback.
func (w *Wizard) GenerateOutline(ctx context.Context, sess *session.Session, topic string) (*Result, error) {
	if err := CheckPrerequisites(sess, StageOutline); err != nil {
		return nil, err
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = strings.TrimSpace(sess.Topic)
	}
	if topic == "" {
		return nil, &InputError{Field: "topic", Message: "a video topic is required"}
	}

	res := &Result{Stage: StageOutline}
	if _, err := w.invoke(ctx, sess, call{
		stage:       StageOutline,
		task:        catalog.TaskOutline,
		vars:        prompt.Vars{"topic": topic},
		temperature: outlineTemperature,
		maxTokens:   outlineMaxTokens,
	}, res); err != nil {
		return nil, err
	}

	sess.Topic = topic
	if strings.TrimSpace(res.Text) == "" {
		res.warn("The model returned an empty outline; the previous outline was kept.")
		return res, nil
	}
	sess.Outline = res.Text
	sess.OutlineFeedback = ""
	sess.Touch()
	res.Next = StageOutline.Next()
	return res, nil
}

// ScoreOutline asks the model to review the current outline.
func (w *Wizard) ScoreOutline(ctx context.Context, sess *session.Session) (*Result, error) {
	if err := checkRequired(sess, StageOutline, StageConfiguration, StageOutline); err != nil {
		return nil, err
	}

	res := &Result{Stage: StageOutline}
	if _, err := w.invoke(ctx, sess, call{
		stage:       StageOutline,
		task:        catalog.TaskOutlineScore,
		vars:        prompt.Vars{"outline_content": sess.Outline},
		temperature: scoreTemperature,
		maxTokens:   scoreMaxTokens,
	}, res); err != nil {
		return nil, err
	}

	sess.OutlineFeedback = res.Text
	sess.Touch()
	return res, nil
}

// SetOutline replaces the outline with user-edited text.
func (w *Wizard) SetOutline(sess *session.Session, text string) *Result {
	if text != sess.Outline {
		sess.Outline = text
		sess.OutlineFeedback = ""
		sess.Touch()
	}
	return &Result{Stage: StageOutline, Text: text, Next: StageOutline.Next()}
}

// GenerateScript writes the narration script from the outline. wordCount <= 0
// keeps the session's current target.
func (w *Wizard) GenerateScript(ctx context.Context, sess *session.Session, wordCount int) (*Result, error) {
	if err := CheckPrerequisites(sess, StageScript); err != nil {
		return nil, err
	}
	if wordCount < 0 {
		return nil, &InputError{Field: "wordCount", Message: "must be a positive number"}
	}
	if wordCount > 0 {
		sess.WordCount = wordCount
	}
	words := sess.TargetWords()

	res := &Result{Stage: StageScript}
	if _, err := w.invoke(ctx, sess, call{
		stage:       StageScript,
		task:        catalog.TaskScript,
		vars:        prompt.Vars{"outline": sess.Outline, "word_count": words},
		temperature: scriptTemperature,
		maxTokens:   scriptMaxTokens,
	}, res); err != nil {
		return nil, err
	}

	if strings.TrimSpace(res.Text) == "" {
		res.warn("The model returned an empty script; the previous script was kept.")
		return res, nil
	}
	sess.Script = res.Text
	sess.ScriptFeedback = ""
	sess.Touch()
	res.Next = StageScript.Next()
	return res, nil
}

// ScoreScript asks the model to review the current script.
func (w *Wizard) ScoreScript(ctx context.Context, sess *session.Session) (*Result, error) {
	if err := checkRequired(sess, StageScript, StageConfiguration, StageScript); err != nil {
		return nil, err
	}

	res := &Result{Stage: StageScript}
	if _, err := w.invoke(ctx, sess, call{
		stage:       StageScript,
		task:        catalog.TaskScriptScore,
		vars:        prompt.Vars{"script_content": sess.Script},
		temperature: scoreTemperature,
		maxTokens:   scoreMaxTokens,
	}, res); err != nil {
		return nil, err
	}

	sess.ScriptFeedback = res.Text
	sess.Touch()
	return res, nil
}

// SetScript replaces the script with user-edited text.
func (w *Wizard) SetScript(sess *session.Session, text string) *Result {
	if text != sess.Script {
		sess.Script = text
		sess.ScriptFeedback = ""
		sess.Touch()
	}
	return &Result{Stage: StageScript, Text: text, Next: StageScript.Next()}
}

// Confirm records the user's approval of a stage and returns the stages to
// visit next. It does not gate any operation.
func (w *Wizard) Confirm(sess *session.Session, stage Stage) (*Result, error) {
	if !stage.Complete(sess) {
		return nil, &InputError{Field: "stage", Message: fmt.Sprintf("%s has nothing to confirm yet", strings.ToLower(stage.Title()))}
	}
	sess.Confirm(string(stage))
	sess.Touch()
	return &Result{Stage: stage, Next: stage.Next()}, nil
}

// Reset clears every artifact and keeps the API configuration.
func (w *Wizard) Reset(sess *session.Session) *Result {
	sess.Reset()
	logrus.WithField("session", sess.ID).Info("project reset")
	return &Result{Stage: StageConfiguration, Next: []Stage{StageOutline}}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
