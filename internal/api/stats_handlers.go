package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetQuestionStats возвращает количество обращений по статусам для опроса из админки.
func GetQuestionStats(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	summary, err := getDeps(r).Service.Summary(r.Context(), admin.ID)
	if err != nil {
		writeServiceError(w, r, "GetQuestionStats", err)
		return
	}
	w.Header().Set("X-Poll-Interval", strconv.Itoa(summary.PollIntervalSeconds))
	writeJSONSuccess(w, "Статистика получена", summary)
}

// ExportQuestions отдает Excel-выгрузку всех обращений.
func ExportQuestions(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	// Файл собирается целиком до отправки заголовков, чтобы ошибку можно было вернуть в JSON.
	var buf bytes.Buffer
	if err := getDeps(r).Service.ExportThreadsXLSX(r.Context(), admin.ID, &buf); err != nil {
		writeServiceError(w, r, "ExportQuestions", err)
		return
	}

	filename := fmt.Sprintf("questions_%s.xlsx", time.Now().Format("20060102_1504"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
