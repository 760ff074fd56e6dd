// Package web serves the upload front end: receipt and external statement
// files in, merged claim form CSV out.
package web

import (
	"embed"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"expense_automation/data"
	"expense_automation/service/export"
	"expense_automation/service/ingest"
	"expense_automation/service/reconcile"
	reconcileInterface "expense_automation/service/reconcile/interfaces"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/unrolled/render"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

var allowedReceiptExts = map[string]bool{
	".json": true, ".csv": true, ".xlsx": true, ".xls": true,
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true,
}

var allowedExternalExts = map[string]bool{
	".csv": true, ".xlsx": true, ".xls": true,
}

type Server struct {
	router     *mux.Router
	render     *render.Render
	logger     *zap.Logger
	reconciler reconcileInterface.Service
}

type indexView struct {
	Error string
}

func NewServer(logger *zap.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		render: render.New(render.Options{
			Directory:  "templates",
			FileSystem: &render.EmbedFileSystem{FS: templatesFS},
			Extensions: []string{".html"},
		}),
		logger:     logger,
		reconciler: reconcile.NewService(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Run(addr string) error {
	s.logger.Info("upload front end listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_ = s.render.HTML(w, http.StatusOK, "index", indexView{})
}

func (s *Server) failIndex(w http.ResponseWriter, status int, message string) {
	_ = s.render.HTML(w, status, "index", indexView{Error: message})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.failIndex(w, http.StatusBadRequest, "could not read the uploaded form")
		return
	}
	receiptUploads := r.MultipartForm.File["receipts"]
	externalUploads := r.MultipartForm.File["external"]

	if len(receiptUploads) == 0 {
		s.failIndex(w, http.StatusBadRequest, "upload at least one receipt file (JSON, CSV, Excel, or image)")
		return
	}
	if len(externalUploads) == 0 {
		s.failIndex(w, http.StatusBadRequest, "upload the external transaction file (CSV or Excel)")
		return
	}
	for _, upload := range receiptUploads {
		if !allowedReceiptExts[uploadExt(upload)] {
			s.failIndex(w, http.StatusBadRequest, "receipt files must be JSON, CSV, Excel, or common image formats")
			return
		}
	}
	if !allowedExternalExts[uploadExt(externalUploads[0])] {
		s.failIndex(w, http.StatusBadRequest, "the external transaction file must be CSV or Excel")
		return
	}

	batch := uuid.New()
	tempDir := filepath.Join(os.TempDir(), "claims-"+batch.String())
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		s.failIndex(w, http.StatusInternalServerError, "could not stage the uploaded files")
		return
	}
	defer func() {
		_ = os.RemoveAll(tempDir)
	}()

	receiptPaths, err := s.saveUploads(receiptUploads, tempDir)
	if err == nil {
		var externalPaths []string
		externalPaths, err = s.saveUploads(externalUploads[:1], tempDir)
		if err == nil {
			s.generate(w, r, batch, tempDir, receiptPaths, externalPaths[0])
			return
		}
	}
	s.logger.Error("failed to stage uploads", zap.String("batch", batch.String()), zap.Error(err))
	s.failIndex(w, http.StatusInternalServerError, "could not stage the uploaded files")
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, batch uuid.UUID, tempDir string, receiptPaths []string, externalPath string) {
	var receipts []*data.ReceiptRecord
	for _, path := range receiptPaths {
		loaded, err := ingest.LoadReceipts(path)
		if err != nil {
			s.failIndex(w, http.StatusBadRequest, err.Error())
			return
		}
		receipts = append(receipts, loaded...)
	}
	pool, err := ingest.LoadCharges(externalPath)
	if err != nil {
		s.failIndex(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.reconciler.MatchReceipts(&reconcileInterface.MatchReceiptsIn{
		Receipts: receipts,
		Charges:  pool,
	})
	if err != nil {
		s.failIndex(w, http.StatusInternalServerError, err.Error())
		return
	}

	outputPath := filepath.Join(tempDir, "claim_form.csv")
	if err := export.WriteMergedCSV(out.Merged, outputPath); err != nil {
		s.failIndex(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("claim form generated",
		zap.String("batch", batch.String()),
		zap.Int("rows", len(out.Merged)),
		zap.Int("matched", out.MatchedCount),
		zap.Int("unmatched", out.UnmatchedCount),
		zap.Int("external_only", out.ExternalOnlyCount))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="claim_form.csv"`)
	http.ServeFile(w, r, outputPath)
}

func (s *Server) saveUploads(uploads []*multipart.FileHeader, tempDir string) ([]string, error) {
	paths := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		if upload.Filename == "" {
			continue
		}
		target := filepath.Join(tempDir, filepath.Base(upload.Filename))
		if err := saveUpload(upload, target); err != nil {
			return nil, err
		}
		paths = append(paths, target)
	}
	return paths, nil
}

func saveUpload(upload *multipart.FileHeader, target string) error {
	src, err := upload.Open()
	if err != nil {
		return fmt.Errorf("could not open upload %s: %w", upload.Filename, err)
	}
	defer func() {
		_ = src.Close()
	}()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("could not stage upload %s: %w", upload.Filename, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func uploadExt(upload *multipart.FileHeader) string {
	return strings.ToLower(filepath.Ext(upload.Filename))
}
