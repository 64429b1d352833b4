package extract

// Builtins returns the descriptors of the built-in extractors. Every one
// has the default priority, so extractors registered later with a lower
// priority run ahead of them.
func Builtins(conv *Converters) []Descriptor {
	return []Descriptor{
		{Name: "text", Extensions: []string{"txt"}, Extract: ExtractPlain},
		{Name: "html", Extensions: []string{"htm", "html"}, Extract: ExtractHTML},
		{Name: "docx", Extensions: []string{"docx"}, Extract: ExtractDocx},
		{Name: "xlsx", Extensions: []string{"xlsx"}, Extract: ExtractXlsx},
		{Name: "pptx", Extensions: []string{"pptx"}, Extract: ExtractPptx},
		{Name: "catdoc", Extensions: []string{"doc"}, Extract: NewLegacyOffice(conv, "catdoc", "-a").Extract},
		{Name: "xls2csv", Extensions: []string{"xls"}, Extract: NewLegacyOffice(conv, "xls2csv").Extract},
		{Name: "catppt", Extensions: []string{"ppt"}, Extract: NewLegacyOffice(conv, "catppt").Extract},
		{Name: "pdf", Extensions: []string{"pdf"}, Extract: NewPDFExtractor(conv).Extract},
	}
}

// RegisterDefaults registers the built-in extractors on r.
func RegisterDefaults(r *Registry, conv *Converters) error {
	for _, d := range Builtins(conv) {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}
