package dashboard

func indexOfInstance(instances []WidgetInstance, id string) int {
	for i, inst := range instances {
		if inst.ID == id {
			return i
		}
	}
	return -1
}

// moveInstance relocates the instance identified by activeID to the position
// currently held by overID. Equal or unknown identities leave the sequence
// untouched.
func moveInstance(instances []WidgetInstance, activeID, overID string) ([]WidgetInstance, bool) {
	if activeID == overID {
		return instances, false
	}
	from := indexOfInstance(instances, activeID)
	to := indexOfInstance(instances, overID)
	if from < 0 || to < 0 {
		return instances, false
	}
	return arrayMove(instances, from, to), true
}

// moveInstanceTo relocates the instance to index, clamped to the sequence bounds.
func moveInstanceTo(instances []WidgetInstance, id string, index int) ([]WidgetInstance, bool) {
	from := indexOfInstance(instances, id)
	if from < 0 {
		return instances, false
	}
	to := clamp(index, 0, len(instances)-1)
	if from == to {
		return instances, false
	}
	return arrayMove(instances, from, to), true
}

func arrayMove(instances []WidgetInstance, from, to int) []WidgetInstance {
	out := make([]WidgetInstance, 0, len(instances))
	moved := instances[from]
	for i, inst := range instances {
		if i != from {
			out = append(out, inst)
		}
	}
	out = append(out[:to], append([]WidgetInstance{moved}, out[to:]...)...)
	return out
}

func removeInstance(instances []WidgetInstance, id string) ([]WidgetInstance, bool) {
	out := make([]WidgetInstance, 0, len(instances))
	for _, inst := range instances {
		if inst.ID != id {
			out = append(out, inst)
		}
	}
	return out, len(out) != len(instances)
}

// applyOrder reorders instances by id; ids not listed keep their relative
// order after the listed ones.
func applyOrder(instances []WidgetInstance, order []string) []WidgetInstance {
	if len(order) == 0 {
		return instances
	}
	index := make(map[string]WidgetInstance, len(instances))
	for _, w := range instances {
		index[w.ID] = w
	}
	result := make([]WidgetInstance, 0, len(instances))
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if w, ok := index[id]; ok {
			if _, dup := seen[id]; dup {
				continue
			}
			result = append(result, w)
			seen[id] = struct{}{}
		}
	}
	for _, w := range instances {
		if _, ok := seen[w.ID]; !ok {
			result = append(result, w)
		}
	}
	return result
}
