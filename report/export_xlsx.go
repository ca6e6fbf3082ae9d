package report

import (
	"bytes"
	"fmt"

	"github.com/M0hammedHaris/snaptrace/internal/model"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// ExportXLSX 将一组裁决记录导出为 XLSX 表格, 供人工复核时筛选排序。
func ExportXLSX(records []*model.Decision) ([]byte, error) {
	log.Info().Int("count", len(records)).Msg("ExportXLSX processing")

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Matching"
	f.SetSheetName("Sheet1", sheetName)

	// 写入表头
	headers := []string{"File", "Contact", "Date", "Band", "Tier", "Score",
		"Media ID", "Time", "Delta(s)", "Same Day", "Contact Freq", "Reason", "Candidates"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	// 设置表头样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle(sheetName, "A1", "M1", headerStyle)

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 45)
	f.SetColWidth(sheetName, "B", "B", 20)
	f.SetColWidth(sheetName, "C", "C", 20)
	f.SetColWidth(sheetName, "L", "L", 60)

	// 写入数据行
	for i, d := range records {
		row := []interface{}{
			d.File, d.Contact, d.Date, Band(d), string(d.Tier), d.Score,
			d.Breakdown.MediaIDScore, d.Breakdown.TimeDiffScore, d.Breakdown.TimeDiffSeconds,
			d.Breakdown.SameDayScore, d.Breakdown.ContactFreqScore, d.Reason, d.Candidates,
		}
		rowNum := i + 2
		for j, val := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, rowNum)
			f.SetCellValue(sheetName, cell, val)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("写入XLSX失败: %w", err)
	}

	return buf.Bytes(), nil
}
