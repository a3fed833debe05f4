package docx

import (
	"fmt"
	"path"

	"github.com/beevik/etree"
)

// Concat склеивает документы в один, вставляя разрыв страницы между соседними.
// Все документы должны быть получены из одного шаблона: ссылки на картинки и
// стили берутся из первого документа. Колонтитулы тоже берутся из первого:
// плейсхолдеры в них показывают данные первого получателя на всех страницах
// (см. DivergentHeaders).
func Concat(docs ...*Document) (*Document, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: пустой список", ErrIncompatible)
	}
	out := docs[0].Clone()
	body, sectPr, err := documentBody(out)
	if err != nil {
		return nil, err
	}

	for i, d := range docs[1:] {
		if !sameParts(docs[0], d) {
			return nil, fmt.Errorf("%w: документ %d", ErrIncompatible, i+2)
		}
		src, _, err := documentBody(d)
		if err != nil {
			return nil, err
		}

		insert(body, sectPr, pageBreak())
		for _, el := range src.ChildElements() {
			if el.Space == "w" && el.Tag == "sectPr" {
				continue
			}
			insert(body, sectPr, el.Copy())
		}
	}
	return out, nil
}

// DivergentHeaders возвращает колонтитулы (word/header*.xml, word/footer*.xml),
// текст которых хотя бы у одного документа отличается от первого. Concat
// такие различия теряет.
func DivergentHeaders(docs ...*Document) []string {
	if len(docs) < 2 {
		return nil
	}
	var out []string
	for _, p := range docs[0].parts {
		if !isHeaderFooter(p.name) {
			continue
		}
		first := docs[0].PartText(p.name)
		for _, d := range docs[1:] {
			if d.PartText(p.name) != first {
				out = append(out, p.name)
				break
			}
		}
	}
	return out
}

func isHeaderFooter(name string) bool {
	for _, pattern := range []string{"word/header*.xml", "word/footer*.xml"} {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// documentBody возвращает w:body и его завершающий w:sectPr (может быть nil).
func documentBody(d *Document) (*etree.Element, *etree.Element, error) {
	x, ok := d.xml[mainPart]
	if !ok {
		return nil, nil, fmt.Errorf("%w: нет %s", ErrIncompatible, mainPart)
	}
	body := x.FindElement("//w:body")
	if body == nil {
		return nil, nil, fmt.Errorf("%w: нет w:body", ErrIncompatible)
	}
	var sectPr *etree.Element
	if children := body.ChildElements(); len(children) > 0 {
		last := children[len(children)-1]
		if last.Space == "w" && last.Tag == "sectPr" {
			sectPr = last
		}
	}
	return body, sectPr, nil
}

// insert добавляет элемент в конец тела, перед w:sectPr.
func insert(body, sectPr, el *etree.Element) {
	if sectPr == nil {
		body.AddChild(el)
		return
	}
	body.InsertChildAt(sectPr.Index(), el)
}

func pageBreak() *etree.Element {
	p := etree.NewElement("w:p")
	br := p.CreateElement("w:r").CreateElement("w:br")
	br.CreateAttr("w:type", "page")
	return p
}

func sameParts(a, b *Document) bool {
	if len(a.parts) != len(b.parts) {
		return false
	}
	for i := range a.parts {
		if a.parts[i].name != b.parts[i].name {
			return false
		}
	}
	return true
}
