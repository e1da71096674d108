package document

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFExtractor PDF文档提取器
type PDFExtractor struct {
	conf *model.Configuration
}

// NewPDFExtractor 创建一个新的PDF提取器
func NewPDFExtractor() Extractor {
	return &PDFExtractor{conf: model.NewDefaultConfiguration()}
}

// Extract 按页顺序提取PDF文本，每页文本后追加一个换行
// 提取失败时用pdfcpu校验文件结构，给出更具体的错误原因
func (p *PDFExtractor) Extract(filePath string) (string, error) {
	pages, err := readPages(filePath)
	if err != nil {
		if verr := api.ValidateFile(filePath, p.conf); verr != nil {
			return "", fmt.Errorf("invalid PDF: %w", verr)
		}
		return "", err
	}
	return JoinPages(pages), nil
}

// readPages 读取每一页的纯文本，解析器panic时转换为错误
func readPages(filePath string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages = make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		// GetPlainText在文本位置变化时插入换行，空白页只有换行
		pages = append(pages, strings.Trim(text, "\n"))
	}
	return pages, nil
}

// JoinPages 拼接各页文本，每页之后追加换行（空页同样保留换行）
func JoinPages(pages []string) string {
	var sb strings.Builder
	for _, page := range pages {
		sb.WriteString(page)
		sb.WriteString("\n")
	}
	return sb.String()
}
