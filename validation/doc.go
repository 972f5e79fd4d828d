// Package validation checks structs against their validate tags with
// go-playground/validator and reports failures as an INVALID_INPUT
// AppError. Fields are named by their mapstructure (or json) key so a
// message points at the config path an operator has to fix:
//
//	type BatchConfig struct {
//	    MaxFileSize string   `mapstructure:"max_file_size" validate:"bytesize"`
//	    Languages   []string `mapstructure:"languages" validate:"min=1"`
//	}
//	err := validation.Validate(cfg) // batch.languages: must be at least 1
//
// Besides the built-in rules, "bytesize" accepts sizes util.ParseSize
// understands, such as 512KB or 100MB.
package validation
