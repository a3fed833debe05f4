// Package docx заполняет шаблоны Word (.docx): замена плейсхолдеров в тексте
// параграфов, склейка документов через разрыв страницы и обратная упаковка.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// ErrTemplate: шаблон отсутствует, не читается или не является .docx.
var ErrTemplate = errors.New("docx: неверный шаблон")

// ErrIncompatible: документы собраны из разных шаблонов и не склеиваются.
var ErrIncompatible = errors.New("docx: документы несовместимы")

const mainPart = "word/document.xml"

// Части, в которых ищутся плейсхолдеры.
var textParts = []string{
	mainPart,
	"word/header*.xml",
	"word/footer*.xml",
	"word/footnotes.xml",
	"word/endnotes.xml",
}

func isTextPart(name string) bool {
	for _, pattern := range textParts {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

type part struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
}

// Template хранит неизменяемую копию .docx в памяти. Безопасен для параллельного чтения.
type Template struct {
	parts []part
}

// OpenTemplate читает шаблон с диска.
func OpenTemplate(filename string) (*Template, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return ReadTemplate(bytes.NewReader(data), int64(len(data)))
}

// ReadTemplate разбирает .docx из произвольного источника.
func ReadTemplate(r io.ReaderAt, size int64) (*Template, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	t := &Template{}
	hasMain := false
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		p, err := extractPart(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplate, f.Name, err)
		}
		if p.name == mainPart {
			hasMain = true
		}
		t.parts = append(t.parts, p)
	}
	if !hasMain {
		return nil, fmt.Errorf("%w: нет %s", ErrTemplate, mainPart)
	}

	// Проверяем XML заранее, чтобы ошибка шаблона не всплыла на середине партии
	if _, err := t.document(); err != nil {
		return nil, err
	}
	return t, nil
}

// Извлекает отдельную часть из архива
func extractPart(f *zip.File) (part, error) {
	rc, err := f.Open()
	if err != nil {
		return part{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return part{}, err
	}
	return part{name: f.Name, method: f.Method, modified: f.Modified, data: data}, nil
}

// Fill возвращает новый документ с подставленными значениями.
// Сам шаблон не изменяется.
func (t *Template) Fill(fields map[string]string, delims Delims) (*Document, error) {
	doc, err := t.document()
	if err != nil {
		return nil, err
	}
	doc.Fill(fields, delims)
	return doc, nil
}

// document разбирает текстовые части в свежие деревья etree.
func (t *Template) document() (*Document, error) {
	d := &Document{parts: t.parts, xml: make(map[string]*etree.Document)}
	for _, p := range t.parts {
		if !isTextPart(p.name) {
			continue
		}
		x := etree.NewDocument()
		if err := x.ReadFromBytes(p.data); err != nil {
			return nil, fmt.Errorf("%w: ошибка чтения XML %s: %v", ErrTemplate, p.name, err)
		}
		d.xml[p.name] = x
	}
	return d, nil
}

// Document это один заполненный экземпляр шаблона.
type Document struct {
	// parts общие с шаблоном и не изменяются; текстовые части живут в xml
	parts []part
	xml   map[string]*etree.Document
}

// Fill заменяет плейсхолдеры во всех текстовых частях и возвращает число замен.
// Повторный вызов с тем же набором значений ничего не меняет.
func (d *Document) Fill(fields map[string]string, delims Delims) int {
	keys := SortKeys(fields, delims)
	n := 0
	for _, p := range d.parts {
		x, ok := d.xml[p.name]
		if !ok {
			continue
		}
		for _, para := range x.FindElements("//w:p") {
			runs := paragraphRuns(para)
			if len(runs) == 0 {
				continue
			}
			replaced := 0
			for _, key := range keys {
				replaced += replaceToken(runs, delims.Token(key), fields[key])
			}
			if replaced > 0 {
				for _, t := range runs {
					splitLines(t)
				}
			}
			n += replaced
		}
	}
	return n
}

// paragraphRuns собирает узлы w:t, принадлежащие именно этому параграфу
// (без вложенных параграфов надписей).
func paragraphRuns(p *etree.Element) []*etree.Element {
	var runs []*etree.Element
	for _, t := range p.FindElements(".//w:t") {
		if nearestParagraph(t) == p {
			runs = append(runs, t)
		}
	}
	return runs
}

func nearestParagraph(e *etree.Element) *etree.Element {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if p.Space == "w" && p.Tag == "p" {
			return p
		}
	}
	return nil
}

// replaceToken выполняет один проход поиска и замены по тексту параграфа.
// Плейсхолдер может быть разбит Word на несколько узлов w:t: значение пишется
// в узел, где начинается плейсхолдер, остальные части вырезаются.
// Вставленный текст повторно не просматривается.
func replaceToken(runs []*etree.Element, token, value string) int {
	if token == "" {
		return 0
	}
	n := 0
	from := 0
	texts := make([]string, len(runs))
	for {
		var full strings.Builder
		for i, t := range runs {
			texts[i] = t.Text()
			full.WriteString(texts[i])
		}
		text := full.String()
		if from > len(text) {
			break
		}
		idx := strings.Index(text[from:], token)
		if idx < 0 {
			break
		}
		start := from + idx
		end := start + len(token)

		pos := 0
		for i, t := range runs {
			s := texts[i]
			lo, hi := pos, pos+len(s)
			pos = hi
			if hi <= start || lo >= end {
				continue
			}
			a := max(start, lo) - lo
			b := min(end, hi) - lo
			if start >= lo {
				t.SetText(s[:a] + value + s[b:])
			} else {
				t.SetText(s[:a] + s[b:])
			}
			// Сохраняем пробелы по краям
			t.CreateAttr("xml:space", "preserve")
		}
		from = start + len(value)
		n++
	}
	return n
}

// splitLines превращает переводы строк в значении в w:br внутри того же w:r.
func splitLines(t *etree.Element) {
	text := t.Text()
	run := t.Parent()
	if run == nil || !strings.Contains(text, "\n") {
		return
	}
	lines := strings.Split(text, "\n")
	t.SetText(lines[0])
	at := t.Index() + 1
	for _, line := range lines[1:] {
		run.InsertChildAt(at, etree.NewElement("w:br"))
		nt := etree.NewElement("w:t")
		nt.CreateAttr("xml:space", "preserve")
		nt.SetText(line)
		run.InsertChildAt(at+1, nt)
		at += 2
	}
}

// Placeholders возвращает плейсхолдеры, оставшиеся в тексте, без повторов.
func (d *Document) Placeholders(delims Delims) []string {
	if delims.Left == "" || delims.Right == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, p := range d.parts {
		x, ok := d.xml[p.name]
		if !ok {
			continue
		}
		for _, para := range x.FindElements("//w:p") {
			text := runText(paragraphRuns(para))
			for {
				i := strings.Index(text, delims.Left)
				if i < 0 {
					break
				}
				j := strings.Index(text[i+len(delims.Left):], delims.Right)
				if j < 0 {
					break
				}
				key := text[i+len(delims.Left) : i+len(delims.Left)+j]
				if key != "" && !seen[key] {
					seen[key] = true
					out = append(out, key)
				}
				text = text[i+len(delims.Left)+j+len(delims.Right):]
			}
		}
	}
	sort.Strings(out)
	return out
}

// Text возвращает текст основного документа: по строке на параграф.
func (d *Document) Text() string {
	return d.PartText(mainPart)
}

// PartText возвращает текст указанной части (например word/header1.xml).
func (d *Document) PartText(name string) string {
	x, ok := d.xml[name]
	if !ok {
		return ""
	}
	var lines []string
	for _, para := range x.FindElements("//w:p") {
		lines = append(lines, runText(paragraphRuns(para)))
	}
	return strings.Join(lines, "\n")
}

func runText(runs []*etree.Element) string {
	var sb strings.Builder
	for _, t := range runs {
		sb.WriteString(t.Text())
	}
	return sb.String()
}

// Clone возвращает независимую копию документа.
func (d *Document) Clone() *Document {
	c := &Document{parts: d.parts, xml: make(map[string]*etree.Document, len(d.xml))}
	for name, x := range d.xml {
		c.xml[name] = x.Copy()
	}
	return c
}

// WriteTo упаковывает документ обратно в .docx, сохраняя порядок частей.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	writer := zip.NewWriter(cw)

	for _, p := range d.parts {
		data := p.data
		if x, ok := d.xml[p.name]; ok {
			b, err := x.WriteToBytes()
			if err != nil {
				return cw.n, fmt.Errorf("ошибка записи XML %s: %v", p.name, err)
			}
			data = b
		}

		header := &zip.FileHeader{Name: p.name, Method: zip.Deflate, Modified: p.modified}
		if p.method == zip.Store {
			header.Method = zip.Store
		}
		entry, err := writer.CreateHeader(header)
		if err != nil {
			return cw.n, err
		}
		if _, err := entry.Write(data); err != nil {
			return cw.n, err
		}
	}

	if err := writer.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Bytes возвращает упакованный .docx.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// FillFile заполняет шаблон с диска и сохраняет результат в outputPath.
func FillFile(templatePath, outputPath string, fields map[string]string, delims Delims) error {
	t, err := OpenTemplate(templatePath)
	if err != nil {
		return err
	}
	doc, err := t.Fill(fields, delims)
	if err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if _, err := doc.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("ошибка упаковки: %v", err)
	}
	return out.Close()
}
