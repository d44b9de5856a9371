package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	assert.Equal(t, "pt", match("pt-BR"))
	assert.Equal(t, "es", match("es_AR"))
	assert.Equal(t, "ru", match("ru"))
	assert.Equal(t, "en", match("de-DE"))
}

func TestT(t *testing.T) {
	prev := GetLang()
	t.Cleanup(func() { SetLang(prev) })

	SetLang("es")
	assert.Equal(t, "Guardar", T("Save"))
	assert.Equal(t, "untranslated", T("untranslated"))

	SetLang("en")
	assert.Equal(t, "Save", T("Save"))
}
