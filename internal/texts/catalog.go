package texts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

const (
	textsARFile = "texts_ar.json"
	textsENFile = "texts_en.json"
	buttonsFile = "buttons.json"
)

// Catalog — локализованные тексты и подписи кнопок.
// Неизвестный ключ возвращается как есть.
type Catalog struct {
	texts   map[ports.Language]map[string]string
	buttons map[ports.Language]map[string]string
}

// Load читает texts_ar.json, texts_en.json и buttons.json из dir.
// Отсутствующий файл не ошибка: тексты будут ключами.
func Load(dir string) (*Catalog, error) {
	c := New()

	for lang, name := range map[ports.Language]string{ports.LangAR: textsARFile, ports.LangEN: textsENFile} {
		m, err := readMap(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if m != nil {
			c.texts[lang] = m
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, buttonsFile))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", buttonsFile, err)
	default:
		var btns map[ports.Language]map[string]string
		if err := json.Unmarshal(raw, &btns); err != nil {
			return nil, fmt.Errorf("parse %s: %w", buttonsFile, err)
		}
		for lang, m := range btns {
			c.buttons[lang] = m
		}
	}

	return c, nil
}

// New — пустой каталог (тексты = ключи)
func New() *Catalog {
	return &Catalog{
		texts:   map[ports.Language]map[string]string{},
		buttons: map[ports.Language]map[string]string{},
	}
}

func readMap(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// Text — текст по ключу с подстановкой %name% из пар kv ("name", value, ...).
// Нет перевода — берём арабский.
func (c *Catalog) Text(lang ports.Language, key string, kv ...any) string {
	text, ok := c.texts[lang][key]
	if !ok {
		text, ok = c.texts[ports.LangAR][key]
	}
	if !ok {
		text = key
	}
	if len(kv) == 0 {
		return text
	}

	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "%"+fmt.Sprint(kv[i])+"%", fmt.Sprint(kv[i+1]))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Button — подпись кнопки; для en откат на ar, затем на сам ключ
func (c *Catalog) Button(lang ports.Language, key string) string {
	if b, ok := c.buttons[lang][key]; ok {
		return b
	}
	if b, ok := c.buttons[ports.LangAR][key]; ok {
		return b
	}
	return key
}

// Notice — текст исходящего уведомления
func (c *Catalog) Notice(lang ports.Language, n ports.Notice) string {
	return c.Text(lang, string(n))
}
