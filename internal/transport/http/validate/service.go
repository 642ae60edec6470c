// Package validate exposes the validation pipeline over HTTP: image upload,
// the four validation kinds, history paging and reruns.
package validate

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"stayonboard-server-go/internal/domain/color"
	"stayonboard-server-go/internal/domain/imagestore"
	"stayonboard-server-go/internal/domain/validation"
	"stayonboard-server-go/internal/domain/validation/aggregate"
	"stayonboard-server-go/internal/platform/errors"
	"stayonboard-server-go/internal/platform/logging"
	httptransport "stayonboard-server-go/internal/transport/http"
)

// Service is the HTTP surface of the validation domain.
type Service struct {
	validations *validation.Service
	logger      *logging.Logger
}

// NewService creates the transport service.
func NewService(validations *validation.Service, logger *logging.Logger) (*Service, error) {
	if validations == nil {
		return nil, errors.New(errors.KindConfig, "validate.new", "validation service required")
	}
	return &Service{
		validations: validations,
		logger:      logger,
	}, nil
}

// Register wires the routes onto the secured group.
func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	router.POST("/images", s.handleUpload)

	validate := router.Group("/validate")
	validate.POST("/brand", s.handleBrand)
	validate.POST("/wcag-image", s.handleWCAGImage)
	validate.POST("/text-contrast", s.handleTextContrast)
	validate.POST("/compare", s.handleCompare)

	router.GET("/validations", s.handleList)
	router.GET("/validations/:id", s.handleGet)
	router.POST("/validations/:id/rerun", s.handleRerun)

	s.logger.InfoTag("HTTP", "validation routes registered")
	return nil
}

func (s *Service) handleUpload(c *gin.Context) {
	handle, err := s.saveUpload(c, "image")
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusCreated, handle, "image stored")
}

// resolveImage returns the storage id for the request: either an id of a
// previously uploaded image (form field "<field>_id") or a fresh multipart
// upload under "<field>".
func (s *Service) resolveImage(c *gin.Context, field string) (string, error) {
	if id := strings.TrimSpace(c.PostForm(field + "_id")); id != "" {
		return id, nil
	}
	handle, err := s.saveUpload(c, field)
	if err != nil {
		return "", err
	}
	return handle.StorageID, nil
}

func (s *Service) saveUpload(c *gin.Context, field string) (imagestore.Handle, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return imagestore.Handle{}, errors.NewField(errors.KindInvalidParameters, "validate.upload",
			"missing image upload", field)
	}
	raw, err := readUpload(header)
	if err != nil {
		return imagestore.Handle{}, err
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	return s.validations.SaveImage(c.Request.Context(), raw, format)
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidParameters, "validate.upload", "open upload", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidParameters, "validate.upload", "read upload", err)
	}
	return raw, nil
}

// paletteEntry is the wire form of a brand color.
type paletteEntry struct {
	Color     string  `json:"color"`
	Tolerance float64 `json:"tolerance,omitempty"`
}

func parsePalette(raw string) (color.Palette, error) {
	const op = "validate.palette"
	if strings.TrimSpace(raw) == "" {
		return nil, errors.NewField(errors.KindInvalidParameters, op, "palette required", "palette")
	}

	var entries []paletteEntry
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		if err := sonic.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, errors.Wrap(errors.KindInvalidParameters, op, "parse palette json", err)
		}
	} else {
		// Comma-separated hex shorthand: "#112233,#aabbcc".
		for _, hex := range strings.Split(raw, ",") {
			entries = append(entries, paletteEntry{Color: hex})
		}
	}

	palette := make(color.Palette, 0, len(entries))
	for _, entry := range entries {
		rgb, err := color.ParseHex(entry.Color)
		if err != nil {
			return nil, err
		}
		palette = append(palette, color.PaletteEntry{Color: rgb, Tolerance: entry.Tolerance})
	}
	return palette, nil
}

func (s *Service) handleBrand(c *gin.Context) {
	imageID, err := s.resolveImage(c, "image")
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	palette, err := parsePalette(c.PostForm("palette"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}

	colors := 0
	if raw := c.PostForm("colors"); raw != "" {
		colors, err = strconv.Atoi(raw)
		if err != nil {
			httptransport.RespondDomainError(c, errors.NewField(errors.KindInvalidParameters,
				"validate.brand", "colors must be an integer", "colors"))
			return
		}
	}

	s.run(c, aggregate.Request{
		Kind:    aggregate.KindBrand,
		ImageID: imageID,
		Brand: &aggregate.BrandParams{
			Palette: palette,
			Colors:  colors,
		},
	})
}

func (s *Service) handleWCAGImage(c *gin.Context) {
	imageID, err := s.resolveImage(c, "image")
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	s.run(c, aggregate.Request{
		Kind:    aggregate.KindWCAGImage,
		ImageID: imageID,
	})
}

func (s *Service) handleTextContrast(c *gin.Context) {
	const op = "validate.text-contrast"
	foreground, err := color.ParseHex(c.PostForm("foreground"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	background, err := color.ParseHex(c.PostForm("background"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}

	params := &aggregate.TextParams{
		Foreground: foreground,
		Background: background,
	}
	if raw := c.PostForm("font_size_px"); raw != "" {
		params.FontSizePx, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			httptransport.RespondDomainError(c, errors.NewField(errors.KindInvalidParameters,
				op, "font_size_px must be a number", "font_size_px"))
			return
		}
	}
	params.Bold = c.PostForm("bold") == "true"

	s.run(c, aggregate.Request{
		Kind: aggregate.KindTextContrast,
		Text: params,
	})
}

func (s *Service) handleCompare(c *gin.Context) {
	imageID, err := s.resolveImage(c, "image")
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	secondID, err := s.resolveImage(c, "second_image")
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}

	var params *aggregate.CompareParams
	if raw := c.PostForm("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			httptransport.RespondDomainError(c, errors.NewField(errors.KindInvalidParameters,
				"validate.compare", "threshold must be a number", "threshold"))
			return
		}
		params = &aggregate.CompareParams{Threshold: threshold}
	}

	s.run(c, aggregate.Request{
		Kind:          aggregate.KindImageComparison,
		ImageID:       imageID,
		SecondImageID: secondID,
		Compare:       params,
	})
}

func (s *Service) run(c *gin.Context, req aggregate.Request) {
	record, err := s.validations.Validate(c.Request.Context(), httptransport.Principal(c), req)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, record, "")
}

func (s *Service) handleList(c *gin.Context) {
	pageSize := 0
	if raw := c.Query("page_size"); raw != "" {
		var err error
		pageSize, err = strconv.Atoi(raw)
		if err != nil || pageSize < 0 {
			httptransport.RespondError(c, http.StatusBadRequest, "page_size must be a positive integer", nil)
			return
		}
	}

	page, err := s.validations.ListHistory(c.Request.Context(), httptransport.Principal(c),
		pageSize, c.Query("token"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, page, "")
}

func (s *Service) handleGet(c *gin.Context) {
	record, err := s.validations.GetRecord(c.Request.Context(), httptransport.Principal(c), c.Param("id"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, record, "")
}

func (s *Service) handleRerun(c *gin.Context) {
	record, err := s.validations.Rerun(c.Request.Context(), httptransport.Principal(c), c.Param("id"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusCreated, record, "rerun recorded")
}
