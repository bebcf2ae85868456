package api

import (
	"bytes"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"gkh-portal/internal/constants"
	"gkh-portal/internal/utils"
)

// EnsureMediaStorage создает папку для загруженных изображений, если её нет.
func EnsureMediaStorage(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	log.Printf("Media storage initialized at: %s", path)
	return nil
}

// UploadMediaHandler принимает одно изображение (поле формы "image"),
// сохраняет его под случайным именем и возвращает URL для сообщения.
func UploadMediaHandler(w http.ResponseWriter, r *http.Request) {
	cfg := getDeps(r).Config

	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "Файл слишком большой")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "Не удалось разобрать форму: "+err.Error())
		return
	}

	file, handler, err := r.FormFile("image")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Файл изображения не найден в форме")
		return
	}
	defer file.Close()

	if handler.Size > cfg.MaxUploadBytes {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "Файл слишком большой")
		return
	}

	// Тип определяем по содержимому, заголовку клиента не доверяем.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "Не удалось прочитать файл")
		return
	}
	contentType := http.DetectContentType(head[:n])
	if !utils.IsImage(contentType) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Можно загружать только изображения (JPEG, PNG, GIF, WebP)")
		return
	}

	if err := os.MkdirAll(cfg.MediaStoragePath, 0o755); err != nil {
		log.Printf("UploadMediaHandler: не удалось создать папку %s: %v", cfg.MediaStoragePath, err)
		writeJSONError(w, http.StatusInternalServerError, "Не удалось сохранить файл")
		return
	}
	uniqueFilename := utils.GenerateUUID() + utils.ImageExtension(contentType)
	destPath := filepath.Join(cfg.MediaStoragePath, uniqueFilename)

	destFile, err := os.Create(destPath)
	if err != nil {
		log.Printf("UploadMediaHandler: failed to create destination file at %s: %v", destPath, err)
		writeJSONError(w, http.StatusInternalServerError, "Не удалось сохранить файл")
		return
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, io.MultiReader(bytes.NewReader(head[:n]), file)); err != nil {
		log.Printf("UploadMediaHandler: failed to copy file content to %s: %v", destPath, err)
		os.Remove(destPath)
		writeJSONError(w, http.StatusInternalServerError, "Не удалось сохранить файл")
		return
	}

	writeJSONWithStatus(w, http.StatusCreated, "Файл загружен", UploadFileResponse{
		FileID: uniqueFilename,
		URL:    constants.MediaURLPrefix + uniqueFilename,
	})
}

// MediaProxyHandler отдает загруженные изображения.
func MediaProxyHandler(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	// Проверяем, что имя файла не пустое и не содержит путей к директориям
	if filename == "" || strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		writeJSONError(w, http.StatusBadRequest, "Некорректное имя файла")
		return
	}

	filePath := filepath.Join(getDeps(r).Config.MediaStoragePath, filename)

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSONError(w, http.StatusNotFound, "Файл не найден")
		} else {
			writeJSONError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера")
		}
		return
	}
	if fileInfo.IsDir() {
		writeJSONError(w, http.StatusBadRequest, "Некорректное имя файла")
		return
	}

	w.Header().Set("Content-Type", getContentType(filepath.Ext(filename)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=86400") // Кэшировать на 1 день
	w.Header().Set("Expires", time.Now().Add(24*time.Hour).Format(http.TimeFormat))

	http.ServeFile(w, r, filePath)
}

// getContentType возвращает MIME-тип на основе расширения файла
func getContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
