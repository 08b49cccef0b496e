package forms

import (
	"reflect"
	"strconv"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"lavka/internal/domain"
)

// Формы привязываются из POST-данных как строки и проверяются отдельным
// валидатором; ошибки возвращаются по полям для повторного рендера формы.

// ProductForm поля формы создания/редактирования товара
type ProductForm struct {
	Name        string `form:"name" validate:"required,max=200"`
	Description string `form:"description"`
	Price       string `form:"price" validate:"required,currency"`
	Stock       string `form:"stock" validate:"required,count"`
}

// PriceValue возвращает распарсенную цену; вызывать после успешной валидации
func (f ProductForm) PriceValue() decimal.Decimal {
	d, _ := decimal.NewFromString(strings.TrimSpace(f.Price))
	return d
}

func (f ProductForm) StockValue() int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(f.Stock), 10, 64)
	return n
}

// OrderForm статус — единственное редактируемое поле заказа
type OrderForm struct {
	Status string `form:"status" validate:"omitempty,oneof=pending completed cancelled"`
}

func (f OrderForm) StatusValue() domain.OrderStatus {
	return domain.OrderStatus(f.Status)
}

// OrderItemForm поля формы позиции заказа. Пустое количество трактуется
// как 1 (значение по умолчанию).
type OrderItemForm struct {
	ProductID string `form:"product" validate:"required,count"`
	Quantity  string `form:"quantity" validate:"omitempty,positivecount"`
}

func (f OrderItemForm) ProductIDValue() int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(f.ProductID), 10, 64)
	return n
}

func (f OrderItemForm) QuantityValue() int64 {
	s := strings.TrimSpace(f.Quantity)
	if s == "" {
		return 1
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// LoginForm форма входа
type LoginForm struct {
	Username string `form:"username" validate:"required,max=150"`
	Password string `form:"password" validate:"required"`
}

// RegisterForm форма регистрации
type RegisterForm struct {
	Username string `form:"username" validate:"required,min=3,max=150"`
	Password string `form:"password" validate:"required,min=6"`
}

// New возвращает настроенный валидатор с доменными проверками.
// Имена полей в ошибках берутся из form-тегов, как их видит шаблон.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// currency: неотрицательная сумма с не более чем двумя знаками
	v.RegisterValidation("currency", func(fl validatorv10.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		if err != nil {
			return false
		}
		return !d.IsNegative() && d.Exponent() >= -2
	})

	// count: целое число >= 0
	v.RegisterValidation("count", func(fl validatorv10.FieldLevel) bool {
		n, err := strconv.ParseInt(strings.TrimSpace(fl.Field().String()), 10, 64)
		return err == nil && n >= 0
	})

	// positivecount: целое число >= 1
	v.RegisterValidation("positivecount", func(fl validatorv10.FieldLevel) bool {
		n, err := strconv.ParseInt(strings.TrimSpace(fl.Field().String()), 10, 64)
		return err == nil && n >= 1
	})

	return v
}

// Errors ошибки валидации по полям: имя поля формы -> сообщение
type Errors map[string]string

// Validate прогоняет форму через валидатор и возвращает ошибки по полям.
// Пустая мапа означает, что форма корректна.
func Validate(v *validatorv10.Validate, form interface{}) Errors {
	errs := Errors{}
	err := v.Struct(form)
	if err == nil {
		return errs
	}
	ve, ok := err.(validatorv10.ValidationErrors)
	if !ok {
		errs["__all__"] = err.Error()
		return errs
	}
	for _, fe := range ve {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs[fe.Field()] = message(fe)
	}
	return errs
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.String {
			return "Ensure this value has at least " + fe.Param() + " characters."
		}
		return "Value is too small."
	case "max":
		if fe.Kind() == reflect.String {
			return "Ensure this value has at most " + fe.Param() + " characters."
		}
		return "Value is too large."
	case "currency":
		return "Enter a non-negative amount with at most two decimal places."
	case "count":
		return "Enter a non-negative whole number."
	case "positivecount":
		return "Enter a whole number greater than zero."
	case "oneof":
		return "Select a valid choice."
	}
	return "Invalid value."
}
