package portfolio

// Collect 从表单状态生成 Draft。
// 所有值去除首尾空白，全空的列表条目被丢弃，表单状态本身不会被修改。
func Collect(f *FormState) Draft {
	if f == nil {
		f = NewFormState()
	}
	d := Draft{
		Name:         f.Value("name"),
		Role:         f.Value("role"),
		Age:          f.Value("age"),
		Location:     f.Value("location"),
		Email:        f.Value("email"),
		Phone:        f.Value("phone"),
		Summary:      f.Value("summary"),
		Skills:       f.Value("skills"),
		GitHub:       f.Value("github"),
		LinkedIn:     f.Value("linkedin"),
		Website:      f.Value("website"),
		MetaDesc:     f.Value("metaDesc"),
		OGImage:      f.Value("ogImage"),
		Theme:        ParseTheme(string(f.Theme)),
		CustomAccent: NormalizeAccent(f.CustomAccent),
		SectionOrder: append([]Section(nil), DefaultSectionOrder...),

		Educations:     []Education{},
		Certifications: []Certification{},
		Achievements:   []string{},
		Projects:       []Project{},
	}
	if IsProfileDataURL(f.Profile) {
		d.Profile = f.Profile
	}

	for _, e := range f.Lists[ListEducation] {
		if e.blank() {
			continue
		}
		d.Educations = append(d.Educations, Education{
			Institution: e.Value("inst"),
			Degree:      e.Value("deg"),
			Year:        e.Value("year"),
			Score:       e.Value("score"),
		})
	}
	for _, e := range f.Lists[ListCertification] {
		if e.blank() {
			continue
		}
		d.Certifications = append(d.Certifications, Certification{
			Title:  e.Value("title"),
			Issuer: e.Value("issuer"),
			Year:   e.Value("year"),
			URL:    e.Value("url"),
		})
	}
	for _, e := range f.Lists[ListAchievement] {
		if txt := e.Value("txt"); txt != "" {
			d.Achievements = append(d.Achievements, txt)
		}
	}
	for _, e := range f.Lists[ListProject] {
		if e.blank() {
			continue
		}
		d.Projects = append(d.Projects, Project{
			Title:       e.Value("title"),
			Description: e.Value("desc"),
			Tags:        e.Value("tags"),
			Link:        e.Value("link"),
		})
	}
	return d
}

func (d Draft) scalarValues() map[string]string {
	return map[string]string{
		"name":     d.Name,
		"role":     d.Role,
		"age":      d.Age,
		"location": d.Location,
		"email":    d.Email,
		"phone":    d.Phone,
		"summary":  d.Summary,
		"skills":   d.Skills,
		"github":   d.GitHub,
		"linkedin": d.LinkedIn,
		"website":  d.Website,
		"metaDesc": d.MetaDesc,
		"ogImage":  d.OGImage,
	}
}
