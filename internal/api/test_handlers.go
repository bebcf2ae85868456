package api

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"gkh-portal/internal/support"
	"gkh-portal/internal/utils"
)

const demoPassword = "demo-password"

// SeedDemoData создает демонстрационные учетные записи и обращение для разработки фронтенда.
// Доступен только при ENV=dev.
func SeedDemoData(w http.ResponseWriter, r *http.Request) {
	deps := getDeps(r)
	if deps.Config == nil || !deps.Config.IsDev() {
		http.NotFound(w, r)
		return
	}
	log.Println("⚠️ ТЕСТОВЫЙ ЗАПРОС: создаются демонстрационные данные")

	ctx := r.Context()
	suffix := strings.ReplaceAll(utils.GenerateUUID(), "-", "")[:8]

	resident, err := deps.Accounts.Register(ctx, "Мария Петрова", fmt.Sprintf("resident-%s@demo.local.test", suffix), demoPassword)
	if err != nil {
		log.Printf("SeedDemoData: ошибка создания жителя: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Не удалось создать демонстрационного жителя")
		return
	}
	adminUser, err := deps.Accounts.EnsureAdmin(ctx, "Оператор поддержки", fmt.Sprintf("admin-%s@demo.local.test", suffix), demoPassword)
	if err != nil {
		log.Printf("SeedDemoData: ошибка создания администратора: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Не удалось создать демонстрационного администратора")
		return
	}
	adminSession, err := deps.Accounts.IssueSession(adminUser)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Не удалось выпустить токен")
		return
	}

	thread, err := deps.Service.GetOrCreateThread(ctx, resident.User.ID)
	if err != nil {
		writeServiceError(w, r, "SeedDemoData", err)
		return
	}
	messages := []support.PostMessageInput{
		{QuestionID: thread.ID, AuthorID: resident.User.ID, Text: "Здравствуйте! Во втором подъезде третий день нет горячей воды."},
		{QuestionID: thread.ID, AuthorID: adminUser.ID, Text: "Добрый день! Заявка передана в аварийную службу.", IsFromAdmin: true},
	}
	for _, in := range messages {
		if _, err := deps.Service.PostMessage(ctx, in); err != nil {
			writeServiceError(w, r, "SeedDemoData", err)
			return
		}
	}

	writeJSONWithStatus(w, http.StatusCreated, "Демонстрационные данные созданы", DevSeedResponse{
		QuestionID: thread.ID,
		UserToken:  resident.Token,
		AdminToken: adminSession.Token,
	})
}
