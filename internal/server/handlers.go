package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jywlabs/scriptwiz/internal/llm"
	"github.com/jywlabs/scriptwiz/internal/media"
	"github.com/jywlabs/scriptwiz/internal/pipeline"
	"github.com/jywlabs/scriptwiz/internal/session"
	"github.com/jywlabs/scriptwiz/internal/storage"
	"github.com/jywlabs/scriptwiz/internal/template"
)

// stageResponse is returned by every stage operation.
type stageResponse struct {
	Result *pipeline.Result       `json:"result"`
	Status []pipeline.StageStatus `json:"status"`
}

func respond(sess *session.Session, res *pipeline.Result, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return stageResponse{Result: res, Status: pipeline.Status(sess)}, nil
}

// view returns a copy of the session that is safe to send back.
func view(sess *session.Session) (*session.Session, error) {
	out, err := sess.Clone()
	if err != nil {
		return nil, err
	}
	out.API = out.API.Redacted()
	return out, nil
}

// bindJSON decodes an optional JSON body. An empty body leaves v unchanged.
func bindJSON(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &pipeline.InputError{Field: "body", Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := session.New(uuid.NewString())
	if err := s.store.Save(c.Request.Context(), sess); err != nil {
		writeError(c, err)
		return
	}
	logrus.WithField("session", sess.ID).Info("session created")

	v, err := view(sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func getSession(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	return view(sess)
}

func getStatus(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	return pipeline.Status(sess), nil
}

func getRequest(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	task := c.Param("task")
	rec, ok := sess.LastRequests[task]
	if !ok {
		return nil, fmt.Errorf("no request recorded for task %q: %w", task, storage.ErrNotFound)
	}
	return rec, nil
}

func confirmStage(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	stage, err := pipeline.ParseStage(c.Param("stage"))
	if err != nil {
		return nil, &pipeline.InputError{Field: "stage", Message: err.Error()}
	}
	res, err := w.Confirm(sess, stage)
	return respond(sess, res, err)
}

func resetProject(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	return respond(sess, w.Reset(sess), nil)
}

type configRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
	BaseURL  string `json:"baseUrl"`
	Model    string `json:"model"`
}

func configure(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var req configRequest
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	res, err := w.Configure(sess, pipeline.APIInput{
		Provider: req.Provider,
		APIKey:   req.APIKey,
		BaseURL:  req.BaseURL,
		Model:    req.Model,
	})
	return respond(sess, res, err)
}

type textRequest struct {
	Text string `json:"text"`
}

func generateOutline(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	res, err := w.GenerateOutline(c.Request.Context(), sess, req.Topic)
	return respond(sess, res, err)
}

func setOutline(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var req textRequest
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	return respond(sess, w.SetOutline(sess, req.Text), nil)
}

func scoreOutline(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	res, err := w.ScoreOutline(c.Request.Context(), sess)
	return respond(sess, res, err)
}

func generateScript(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var req struct {
		WordCount int `json:"wordCount"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	res, err := w.GenerateScript(c.Request.Context(), sess, req.WordCount)
	return respond(sess, res, err)
}

func setScript(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var req textRequest
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	return respond(sess, w.SetScript(sess, req.Text), nil)
}

func scoreScript(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	res, err := w.ScoreScript(c.Request.Context(), sess)
	return respond(sess, res, err)
}

func generateStoryboard(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	res, err := w.GenerateStoryboard(c.Request.Context(), sess)
	return respond(sess, res, err)
}

func setStoryboard(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var req struct {
		Content string `json:"content"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	res, err := w.SetStoryboard(sess, req.Content)
	return respond(sess, res, err)
}

func exportStoryboard(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	data, err := w.ExportStoryboard(sess)
	if err != nil {
		return nil, err
	}
	attachment(c, template.StoryboardExportFile)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	return nil, nil
}

func generateMetadata(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var req struct {
		Audience string `json:"audience"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	res, err := w.GenerateMetadata(c.Request.Context(), sess, req.Audience)
	return respond(sess, res, err)
}

func setMetadata(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var req textRequest
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	return respond(sess, w.SetMetadata(sess, req.Text), nil)
}

func listScenes(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	scenes := w.Scenes(sess)
	if scenes == nil {
		scenes = []pipeline.Scene{}
	}
	return scenes, nil
}

// generateImagePrompt accepts an optional multipart "image" file.
func generateImagePrompt(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var image *llm.Image
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return nil, &pipeline.InputError{Field: "image", Message: err.Error()}
		default:
			f, err := fh.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open upload: %w", err)
			}
			defer f.Close()
			if image, err = media.Read(fh.Filename, f); err != nil {
				return nil, err
			}
		}
	}
	res, err := w.GenerateImagePrompt(c.Request.Context(), sess, c.Param("scene"), image)
	return respond(sess, res, err)
}

func setImagePrompt(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var req textRequest
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	res, err := w.SetImagePrompt(sess, c.Param("scene"), req.Text)
	return respond(sess, res, err)
}

func exportImagePrompts(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	data, err := w.ExportImagePrompts(sess)
	if err != nil {
		return nil, err
	}
	attachment(c, template.ImagePromptExportFile)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	return nil, nil
}

func seedTranslationSource(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var req struct {
		Force bool `json:"force"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	res, err := w.SeedTranslationSource(sess, req.Force)
	return respond(sess, res, err)
}

// setTranslationSource accepts the scenes either as a JSON object or as a
// string holding one.
func setTranslationSource(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	var req struct {
		Scenes   json.RawMessage `json:"scenes"`
		Metadata string          `json:"metadata"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	scenes := string(req.Scenes)
	var asString string
	if err := json.Unmarshal(req.Scenes, &asString); err == nil {
		scenes = asString
	}
	res, err := w.SetTranslationSource(sess, scenes, req.Metadata)
	return respond(sess, res, err)
}

func generateReport(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	res, err := w.GenerateReport(c.Request.Context(), sess, c.Param("lang"))
	return respond(sess, res, err)
}

func exportReport(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error) {
	r, err := w.ExportReport(sess, c.Param("lang"))
	if err != nil {
		return nil, err
	}
	attachment(c, r.FileName)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(r.Markdown))
	return nil, nil
}

func attachment(c *gin.Context, name string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
}
