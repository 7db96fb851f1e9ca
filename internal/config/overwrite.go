package config

import "fmt"

// Overwrite is the category of existing artifacts a build may regenerate.
// The zero value keeps every existing artifact.
type Overwrite string

const (
	OverwriteNone  Overwrite = ""
	OverwriteAll   Overwrite = "all"
	OverwritePage  Overwrite = "page"
	OverwriteItem  Overwrite = "item"
	OverwriteImage Overwrite = "image"
)

// ParseOverwrite validates a --overwrite value.
func ParseOverwrite(s string) (Overwrite, error) {
	switch o := Overwrite(s); o {
	case OverwriteNone, OverwriteAll, OverwritePage, OverwriteItem, OverwriteImage:
		return o, nil
	default:
		return OverwriteNone, fmt.Errorf("invalid overwrite category '%s': must be one of: all, page, item, image", s)
	}
}

// Allows reports whether artifacts of category c must be regenerated.
// "all" allows every category.
func (o Overwrite) Allows(c Overwrite) bool {
	if o == OverwriteNone {
		return false
	}
	return o == OverwriteAll || o == c
}

// String implements pflag.Value.
func (o *Overwrite) String() string { return string(*o) }

// Set implements pflag.Value.
func (o *Overwrite) Set(s string) error {
	v, err := ParseOverwrite(s)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Type implements pflag.Value.
func (o *Overwrite) Type() string { return "all|page|item|image" }
