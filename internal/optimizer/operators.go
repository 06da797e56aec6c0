package optimizer

import "math/rand"

// Tournament draws k distinct chromosomes at random and returns the one
// with the highest fitness score.
func Tournament(rng *rand.Rand, population []Chromosome, fitness []FitnessResult, k int) Chromosome {
	if len(population) == 0 {
		return Chromosome{}
	}
	if k > len(population) {
		k = len(population)
	}
	if k <= 0 {
		return population[0]
	}
	indices := rng.Perm(len(population))[:k]
	best := indices[0]
	for _, idx := range indices[1:] {
		if fitness[idx].Score > fitness[best].Score {
			best = idx
		}
	}
	return population[best]
}

// Crossover produces two children by uniform per-event exchange. Below
// the rate threshold both children are plain copies of the parents.
func Crossover(rng *rand.Rand, parent1, parent2 Chromosome, eventIDs []string, rate float64) (Chromosome, Chromosome) {
	if rng.Float64() >= rate {
		return parent1.Clone(), parent2.Clone()
	}
	child1 := make(Chromosome, len(eventIDs))
	child2 := make(Chromosome, len(eventIDs))
	for _, id := range eventIDs {
		slot1, slot2 := parent1[id], parent2[id]
		if rng.Float64() < 0.5 {
			child1[id], child2[id] = slot1, slot2
		} else {
			child1[id], child2[id] = slot2, slot1
		}
	}
	return child1, child2
}

// Mutate regenerates each event's assignment with probability rate. A
// mutated event gets a fresh random venue and window; when no legal
// window is found within the attempt budget it becomes unscheduled.
func Mutate(rng *rand.Rand, chrom Chromosome, rc *RunContext, rate float64) Chromosome {
	mutated := chrom.Clone()
	if len(rc.VenueList) == 0 {
		return mutated
	}
	for idx := range rc.Events {
		ev := &rc.Events[idx]
		if rng.Float64() >= rate {
			continue
		}
		venue := rc.VenueList[rng.Intn(len(rc.VenueList))]
		if start, end, ok := randomWindow(rng, rc, ev); ok {
			mutated[ev.ID] = &Slot{VenueID: venue.ID, Start: start, End: end}
		} else {
			mutated[ev.ID] = nil
		}
	}
	return mutated
}
