package model

// GroupTurns reconstructs question/answer turns from a flat message list.
//
// Messages are walked in ascending creation order. User messages occupy even
// slots, one message each; provider answers accumulate in the odd slot that
// follows their question, so sibling answers from several providers share one
// slot. The returned map is keyed by slot index.
func GroupTurns(messages []Message) map[int][]Message {
	grouped := make(map[int][]Message)
	counter := 0

	for _, msg := range SortByCreation(messages) {
		if msg.FromUser() {
			if _, occupied := grouped[counter]; occupied || counter%2 == 1 {
				counter++
			}
			grouped[counter] = []Message{msg}
			counter++
			continue
		}

		if counter%2 == 0 {
			counter++
		}
		grouped[counter] = append(grouped[counter], msg)
	}

	return grouped
}

// TurnCount returns the number of slots a grouped view spans, i.e. one past
// the highest occupied slot index.
func TurnCount(grouped map[int][]Message) int {
	max := -1
	for k := range grouped {
		if k > max {
			max = k
		}
	}
	return max + 1
}
