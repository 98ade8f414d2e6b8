package main

type Category string

const (
	CategoryNone     Category = ""
	CategoryImage    Category = "image"
	CategoryDocument Category = "document"
	CategoryText     Category = "text"
	CategoryGeneric  Category = "generic"
)

// Classify picks the display icon for an entry name. Extensions are matched
// case-sensitively: "photo.PNG" is generic.
func Classify(name string) Category {
	if name == "" {
		return CategoryNone
	}
	switch Decouple(name).Extension {
	case "png", "jpg", "jpeg", "svg", "gif":
		return CategoryImage
	case "pdf":
		return CategoryDocument
	case "txt":
		return CategoryText
	default:
		return CategoryGeneric
	}
}

// Icon returns the glyph used by the terminal shells.
func (c Category) Icon() string {
	switch c {
	case CategoryImage:
		return "🖼"
	case CategoryDocument:
		return "📕"
	case CategoryText:
		return "📝"
	case CategoryGeneric:
		return "📁"
	}
	return " "
}
