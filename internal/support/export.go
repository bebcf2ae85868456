package support

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/xuri/excelize/v2"

	"gkh-portal/internal/constants"
	"gkh-portal/internal/utils"
)

var exportHeaders = []string{"ID обращения", "Имя", "Email", "Статус", "Создано", "Обновлено", "Сообщений", "Последнее сообщение"}

// ExportThreadsXLSX пишет в w Excel-выгрузку всех обращений в порядке списка админки.
func (s *Service) ExportThreadsXLSX(ctx context.Context, actorID int64, w io.Writer) error {
	threads, err := s.ListThreadsForAdmin(ctx, actorID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if errClose := f.Close(); errClose != nil {
			log.Printf("ExportThreadsXLSX: ошибка закрытия файла: %v", errClose)
		}
	}()

	sheetName := constants.ExportSheetName
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("ExportThreadsXLSX: ошибка создания листа: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		log.Printf("ExportThreadsXLSX: не удалось удалить стандартный лист: %v", err)
	}
	f.SetActiveSheet(index)

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, t := range threads {
		row := i + 2
		values := []any{
			t.ID,
			t.Owner.Name,
			t.Owner.Email,
			constants.StatusDisplayMap[t.Status],
			t.CreatedAt.Format(constants.ExportDateTimeLayout),
			t.UpdatedAt.Format(constants.ExportDateTimeLayout),
			len(t.Messages),
			lastMessagePreview(t),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("ExportThreadsXLSX: ошибка записи файла: %w", err)
	}
	log.Printf("ExportThreadsXLSX: выгружено обращений: %d", len(threads))
	return nil
}

func lastMessagePreview(t Thread) string {
	if len(t.Messages) == 0 {
		return ""
	}
	last := t.Messages[len(t.Messages)-1]
	if last.Text == "" && last.ImageURL.Valid {
		return "[изображение]"
	}
	return utils.Truncate(last.Text, constants.MessagePreviewMaxRunes)
}
