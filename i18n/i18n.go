package i18n

import (
	"os"
	"strings"

	"github.com/jeandeaual/go-locale"
	"github.com/rs/zerolog/log"
)

var lang = "en"

var translations = map[string]map[string]string{
	"Open splits to start timing": {
		"pt": "Abra um arquivo de splits para começar",
		"es": "Abre un archivo de splits para empezar",
		"ru": "Откройте файл сплитов, чтобы начать",
	},
	"New personal best! Save before resetting?": {
		"pt": "Novo recorde pessoal! Salvar antes de resetar?",
		"es": "¡Nuevo récord personal! ¿Guardar antes de reiniciar?",
		"ru": "Новый личный рекорд! Сохранить перед сбросом?",
	},
	"This run seems to be worse than the saved one. Continue?": {
		"pt": "Esta run parece pior que a salva. Continuar?",
		"es": "Esta run parece peor que la guardada. ¿Continuar?",
		"ru": "Этот забег хуже сохранённого. Продолжить?",
	},
	"Save splits": {
		"pt": "Salvar splits",
		"es": "Guardar splits",
		"ru": "Сохранить сплиты",
	},
	"Auto splitter disabled": {
		"pt": "Auto splitter desativado",
		"es": "Auto splitter desactivado",
		"ru": "Автосплиттер отключён",
	},
	"Auto splitter": {
		"pt": "Auto splitter",
		"es": "Auto splitter",
		"ru": "Автосплиттер",
	},
	"Open auto splitter": {
		"pt": "Abrir auto splitter",
		"es": "Abrir auto splitter",
		"ru": "Открыть автосплиттер",
	},
	"File": {
		"pt": "Arquivo",
		"es": "Archivo",
		"ru": "Файл",
	},
	"Start": {
		"pt": "Iniciar",
		"es": "Iniciar",
		"ru": "Старт",
	},
	"Reset": {
		"pt": "Resetar",
		"es": "Reiniciar",
		"ru": "Сброс",
	},
	"Open": {
		"pt": "Abrir",
		"es": "Abrir",
		"ru": "Открыть",
	},
	"Save": {
		"pt": "Salvar",
		"es": "Guardar",
		"ru": "Сохранить",
	},
	"Close": {
		"pt": "Fechar",
		"es": "Cerrar",
		"ru": "Закрыть",
	},
	"Reload": {
		"pt": "Recarregar",
		"es": "Recargar",
		"ru": "Перезагрузить",
	},
	"Error": {
		"pt": "Erro",
		"es": "Error",
		"ru": "Ошибка",
	},
}

func init() {
	lang = detect()
}

func detect() string {
	// Check for override environment variable
	if forced := strings.TrimSpace(os.Getenv("SPEEDSPLIT_LANG")); forced != "" {
		log.Debug().Str("lang", forced).Msg("SPEEDSPLIT_LANG is set")
		return forced
	}

	userLocales, err := locale.GetLocales()
	if err != nil || len(userLocales) == 0 {
		return "en"
	}
	return match(userLocales[0])
}

func match(userLocale string) string {
	for _, l := range []string{"pt", "es", "ru"} {
		if strings.HasPrefix(userLocale, l) {
			return l
		}
	}
	return "en"
}

// T translates key into the detected language, falling back to key.
func T(key string) string {
	if translated, ok := translations[key][lang]; ok {
		return translated
	}
	return key
}

// GetLang returns the detected language code.
func GetLang() string {
	return lang
}

// SetLang overrides the detected language.
func SetLang(l string) {
	lang = l
}
