package validation

import (
	"errors"
	"log"
	"reflect"
	"strings"

	"go_5_vocab_practice/internal/model"

	"github.com/go-playground/locales/ja"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	ja_translations "github.com/go-playground/validator/v10/translations/ja"
)

// Validator は入力構造体の検証に使う共有インスタンスです。
var Validator *validator.Validate

// Trans はエラーメッセージを日本語にするトランスレータです。
var Trans ut.Translator

var fieldNameTranslations = map[string]string{
	"text":       "テキスト",
	"language":   "言語",
	"word_type":  "品詞",
	"learner_id": "学習者ID",
	"name":       "名前",
}

func init() {
	Validator = validator.New()

	// json タグをフィールド名として使う
	Validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	japanese := ja.New()
	uni := ut.New(japanese, japanese)
	var found bool
	Trans, found = uni.GetTranslator("ja")
	if !found {
		log.Fatal("translator not found")
	}
	if err := ja_translations.RegisterDefaultTranslations(Validator, Trans); err != nil {
		log.Fatal(err)
	}

	registerTranslation("required", "{0}は必須項目です。")
	registerTranslation("min", "{0}は{1}文字以上で入力してください。")
	registerTranslation("max", "{0}は{1}文字以下で入力してください。")
}

func translatedField(fe validator.FieldError) string {
	if name, ok := fieldNameTranslations[fe.Field()]; ok {
		return name
	}
	return fe.Field()
}

func registerTranslation(tag, msg string) {
	_ = Validator.RegisterTranslation(tag, Trans, func(ut ut.Translator) error {
		return ut.Add(tag, msg, true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T(tag, translatedField(fe), fe.Param())
		return t
	})
}

// Struct は v を検証し、最初の違反を ErrInvalidInput を包んだ AppError として返します。
func Struct(v interface{}) error {
	err := Validator.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		first := validationErrors[0]
		return model.NewAppError("VALIDATION_ERROR", first.Translate(Trans), first.Field(), model.ErrInvalidInput)
	}
	return err
}
