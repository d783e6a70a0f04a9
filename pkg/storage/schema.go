package storage

// Schema describes how rows of one kind map to entity files.
type Schema struct {
	// Kind is the table name and the directory of the entity files.
	Kind string `yaml:"kind"`

	// IDField is the primary-key column. It is never written to files.
	IDField string `yaml:"id_field,omitempty"`

	// References maps single-valued foreign-key columns to the kind they point to.
	References map[string]string `yaml:"references,omitempty"`

	// Relations maps multi-valued relation sets (taxonomies) to the kind of their members.
	Relations map[string]string `yaml:"relations,omitempty"`

	// RelationKind is the member kind of relation sets not listed in Relations.
	RelationKind string `yaml:"relation_kind,omitempty"`

	// TitleField names the column used to describe the entity in commit messages.
	TitleField string `yaml:"title_field,omitempty"`
}

// referenceKind returns the kind a named field or relation points to.
func (s Schema) referenceKind(name string) (string, bool) {
	if kind, ok := s.References[name]; ok {
		return kind, true
	}
	if kind, ok := s.Relations[name]; ok {
		return kind, true
	}
	return "", false
}

// relationKind is referenceKind with the RelationKind fallback.
func (s Schema) relationKind(name string) (string, bool) {
	if kind, ok := s.referenceKind(name); ok {
		return kind, true
	}
	return s.RelationKind, s.RelationKind != ""
}

func (s Schema) isScalarReference(name string) bool {
	_, ok := s.References[name]
	return ok
}

// DefaultSchemas returns the content tables tracked out of the box.
func DefaultSchemas() []Schema {
	return []Schema{
		{
			Kind:    "posts",
			IDField: "ID",
			References: map[string]string{
				"post_author": "users",
				"post_parent": "posts",
			},
			Relations: map[string]string{
				"category": "terms",
				"post_tag": "terms",
			},
			RelationKind: "terms",
			TitleField:   "post_title",
		},
		{
			Kind:       "terms",
			IDField:    "term_id",
			TitleField: "name",
		},
		{
			Kind:    "term_taxonomy",
			IDField: "term_taxonomy_id",
			References: map[string]string{
				"term_id": "terms",
				"parent":  "terms",
			},
			TitleField: "taxonomy",
		},
		{
			Kind:       "users",
			IDField:    "ID",
			TitleField: "user_login",
		},
		{
			Kind:    "comments",
			IDField: "comment_ID",
			References: map[string]string{
				"comment_post_ID": "posts",
				"comment_parent":  "comments",
				"user_id":         "users",
			},
		},
		{
			Kind:       "options",
			IDField:    "option_id",
			TitleField: "option_name",
		},
		{
			Kind:    "usermeta",
			IDField: "umeta_id",
			References: map[string]string{
				"user_id": "users",
			},
			TitleField: "meta_key",
		},
		{
			Kind:    "postmeta",
			IDField: "meta_id",
			References: map[string]string{
				"post_id": "posts",
			},
			TitleField: "meta_key",
		},
	}
}
