package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"stayonboard-server-go/internal/domain/history"
	domainimage "stayonboard-server-go/internal/domain/image"
	"stayonboard-server-go/internal/domain/imagestore"
	"stayonboard-server-go/internal/domain/validation"
	"stayonboard-server-go/internal/domain/validation/cache"
	"stayonboard-server-go/internal/platform/config"
	httptransport "stayonboard-server-go/internal/transport/http"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := config.Defaults()

	store := imagestore.NewMemory(time.Hour)
	validator := domainimage.NewValidator(&cfg.Image, nil)
	verdictCache := cache.NewMemory(64, time.Hour)
	evaluator := validation.NewEvaluator(store, validator, verdictCache, cfg, nil)
	service := validation.NewService(evaluator, history.NewMemory(), store, validator, cfg, nil)
	t.Cleanup(func() {
		service.Close(context.Background())
		verdictCache.Close(context.Background())
	})

	router, err := httptransport.Build(httptransport.Options{
		Config:         cfg,
		Logger:         nil,
		AuthMiddleware: httptransport.IdentityMiddleware(),
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}

	transport, err := NewService(service, nil)
	if err != nil {
		t.Fatalf("new transport service: %v", err)
	}
	if err := transport.Register(context.Background(), router.Secured); err != nil {
		t.Fatalf("register routes: %v", err)
	}
	return router.Engine
}

func pngUpload(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, data := range files {
		part, err := writer.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(data)
	}
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body *bytes.Buffer, contentType, principal string) (*httptest.ResponseRecorder, httptransport.APIResponse) {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if principal != "" {
		req.Header.Set("X-Principal", principal)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp httptransport.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestTextContrastEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, nil, map[string]string{
		"foreground": "#000000",
		"background": "#ffffff",
	})
	rec, resp := doRequest(t, router, http.MethodPost, "/api/validate/text-contrast", body, contentType, "alice")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	record := resp.Data.(map[string]interface{})
	verdict := record["verdict"].(map[string]interface{})
	if verdict["status"] != "pass" {
		t.Fatalf("verdict status = %v, want pass", verdict["status"])
	}
}

func TestTextContrastEndpointRejectsBadColor(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, nil, map[string]string{
		"foreground": "not-a-color",
		"background": "#ffffff",
	})
	rec, resp := doRequest(t, router, http.MethodPost, "/api/validate/text-contrast", body, contentType, "alice")
	if rec.Code != http.StatusBadRequest || resp.Success {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestBrandEndpointWithUpload(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t,
		map[string][]byte{"image": pngUpload(t, color.NRGBA{R: 0, G: 82, B: 204, A: 255})},
		map[string]string{"palette": `[{"color":"#0052cc"},{"color":"#ffffff"}]`},
	)
	rec, resp := doRequest(t, router, http.MethodPost, "/api/validate/brand", body, contentType, "alice")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	record := resp.Data.(map[string]interface{})
	verdict := record["verdict"].(map[string]interface{})
	if verdict["status"] != "pass" {
		t.Fatalf("on-palette upload status = %v, want pass", verdict["status"])
	}
}

func TestUploadThenValidateByID(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t,
		map[string][]byte{"image": pngUpload(t, color.NRGBA{R: 200, G: 10, B: 10, A: 255})}, nil)
	rec, resp := doRequest(t, router, http.MethodPost, "/api/images", body, contentType, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status %d, body %s", rec.Code, rec.Body.String())
	}
	handle := resp.Data.(map[string]interface{})
	storageID := handle["storage_id"].(string)
	if storageID == "" {
		t.Fatalf("upload returned no storage id")
	}

	body, contentType = multipartBody(t, nil, map[string]string{"image_id": storageID})
	rec, resp = doRequest(t, router, http.MethodPost, "/api/validate/wcag-image", body, contentType, "alice")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("validate status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCompareEndpoint(t *testing.T) {
	router := newTestRouter(t)
	raw := pngUpload(t, color.NRGBA{R: 3, G: 160, B: 90, A: 255})

	body, contentType := multipartBody(t,
		map[string][]byte{"image": raw, "second_image": raw}, nil)
	rec, resp := doRequest(t, router, http.MethodPost, "/api/validate/compare", body, contentType, "alice")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	record := resp.Data.(map[string]interface{})
	verdict := record["verdict"].(map[string]interface{})
	if verdict["status"] != "pass" {
		t.Fatalf("identical images status = %v, want pass", verdict["status"])
	}
}

func TestHistoryFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, nil, map[string]string{
		"foreground": "#000000",
		"background": "#ffffff",
	})
	_, resp := doRequest(t, router, http.MethodPost, "/api/validate/text-contrast", body, contentType, "alice")
	record := resp.Data.(map[string]interface{})
	recordID := record["id"].(string)

	// The owner can read and rerun the record.
	rec, _ := doRequest(t, router, http.MethodGet, "/api/validations/"+recordID, nil, "", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	rec, _ = doRequest(t, router, http.MethodPost, "/api/validations/"+recordID+"/rerun", nil, "", "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("rerun status %d, body %s", rec.Code, rec.Body.String())
	}

	// Another principal is refused.
	rec, _ = doRequest(t, router, http.MethodGet, "/api/validations/"+recordID, nil, "", "mallory")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-principal get status %d, want 403", rec.Code)
	}

	// Listing shows both records, newest first.
	rec, resp = doRequest(t, router, http.MethodGet, "/api/validations", nil, "", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	page := resp.Data.(map[string]interface{})
	records := page["records"].([]interface{})
	if len(records) != 2 {
		t.Fatalf("listed %d records, want 2", len(records))
	}

	// An unknown record id is a 404.
	rec, _ = doRequest(t, router, http.MethodGet, "/api/validations/nope", nil, "", "alice")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing record status %d, want 404", rec.Code)
	}
}
