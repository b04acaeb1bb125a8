package collection

// Stats summarizes the collection's buckets and draw activity.
type Stats struct {
	Instances      int
	Drawable       int // instances matching the show state
	NotTransparent int
	Transparent    int
	Selected       int
	ShaderGroups   int
	ShaderGrouped  int // instances across all shader sub-buckets

	// Cumulative since creation.
	DrawCalls     int
	DrawErrors    int
	LastDrawError error
}

// Stats returns current statistics.
func (c *Collection) Stats() Stats {
	st := c.stats
	st.Instances = len(c.index)
	st.Drawable = c.NumberOfDrawableObjects()
	st.NotTransparent = len(c.notTransparent)
	st.Transparent = len(c.transparent)
	st.Selected = len(c.selected)
	st.ShaderGroups = len(c.shaderGroups)
	st.ShaderGrouped = 0
	for _, group := range c.shaderGroups {
		st.ShaderGrouped += len(group)
	}
	return st
}
